package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/clark-group/brokerage-cli/internal/db"
	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Hot-path queries prepared on each new connection.
var preparedStatements = map[string]string{
	"get_mandate":    sqlGetMandate,
	"get_answers":    sqlGetAnswers,
	"save_answer":    sqlSaveAnswer,
	"get_recs":       sqlGetRecommendations,
	"upsert_rec":     sqlUpsertRecommendation,
	"delete_rec":     sqlDeleteRecommendation,
	"active_offer":   sqlActiveOfferExists,
	"get_occupation": sqlGetOccupation,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, for tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying pool for subsystems needing direct access
// (e.g. the occupation catalogue import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS mandates (
	id         BIGSERIAL PRIMARY KEY,
	state      TEXT NOT NULL DEFAULT 'in_creation',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	gender     TEXT,
	birthdate  DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS questionnaire_answers (
	id             BIGSERIAL PRIMARY KEY,
	mandate_id     BIGINT NOT NULL REFERENCES mandates(id),
	question_ident TEXT NOT NULL,
	answer         TEXT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (mandate_id, question_ident)
);

CREATE TABLE IF NOT EXISTS profile_data (
	id             BIGSERIAL PRIMARY KEY,
	mandate_id     BIGINT NOT NULL REFERENCES mandates(id),
	question_ident TEXT NOT NULL,
	value          TEXT NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (mandate_id, question_ident)
);

CREATE TABLE IF NOT EXISTS questionnaire_responses (
	id           BIGSERIAL PRIMARY KEY,
	mandate_id   BIGINT NOT NULL UNIQUE REFERENCES mandates(id),
	state        TEXT NOT NULL DEFAULT 'in_progress',
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS categories (
	id                       BIGSERIAL PRIMARY KEY,
	ident                    TEXT NOT NULL UNIQUE,
	name                     TEXT NOT NULL DEFAULT '',
	category_type            TEXT NOT NULL DEFAULT 'normal',
	included_category_idents JSONB NOT NULL DEFAULT '[]',
	used_in_aoa              BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS recommendations (
	id             BIGSERIAL PRIMARY KEY,
	mandate_id     BIGINT NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	level          TEXT NOT NULL DEFAULT 'recommended',
	is_mandatory   BOOLEAN NOT NULL DEFAULT false,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (mandate_id, category_ident)
);

CREATE TABLE IF NOT EXISTS inquiries (
	id             BIGSERIAL PRIMARY KEY,
	mandate_id     BIGINT NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	state          TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS products (
	id             BIGSERIAL PRIMARY KEY,
	mandate_id     BIGINT NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	state          TEXT NOT NULL DEFAULT 'details_available'
);

CREATE TABLE IF NOT EXISTS opportunities (
	id                     BIGSERIAL PRIMARY KEY,
	mandate_id             BIGINT NOT NULL REFERENCES mandates(id),
	category_id            BIGINT NOT NULL REFERENCES categories(id),
	state                  TEXT NOT NULL DEFAULT 'created',
	consultant_id          BIGINT,
	sold_product_id        BIGINT,
	closed_at              TIMESTAMPTZ,
	avg_open_opportunities DOUBLE PRECISION NOT NULL DEFAULT 0,
	generated_revenue      NUMERIC NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS offers (
	id             BIGSERIAL PRIMARY KEY,
	mandate_id     BIGINT NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	state          TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS occupations (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL UNIQUE,
	bu_question     TEXT,
	bu_answer       TEXT,
	du_question     TEXT,
	du_answer       TEXT
);

CREATE TABLE IF NOT EXISTS admins (
	id                 BIGSERIAL PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	active             BOOLEAN NOT NULL DEFAULT true,
	sales_consultation BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS monthly_admin_performances (
	id                 BIGSERIAL PRIMARY KEY,
	consultant_id      BIGINT NOT NULL REFERENCES admins(id),
	calculation_date   DATE NOT NULL,
	revenue            NUMERIC NOT NULL DEFAULT 0,
	open_opportunities INT NOT NULL DEFAULT 0,
	category_counts    JSONB NOT NULL DEFAULT '{}',
	performance_level  JSONB NOT NULL DEFAULT '{}',
	performance_matrix JSONB NOT NULL DEFAULT '{}',
	algo_version       TEXT NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (consultant_id, calculation_date, algo_version)
);

CREATE TABLE IF NOT EXISTS admin_performance_classifications (
	id             BIGSERIAL PRIMARY KEY,
	admin_id       BIGINT NOT NULL REFERENCES admins(id),
	category_ident TEXT NOT NULL,
	level          TEXT NOT NULL,
	UNIQUE (admin_id, category_ident)
);

CREATE INDEX IF NOT EXISTS idx_answers_mandate ON questionnaire_answers(mandate_id);
CREATE INDEX IF NOT EXISTS idx_recommendations_mandate ON recommendations(mandate_id);
CREATE INDEX IF NOT EXISTS idx_inquiries_mandate_category ON inquiries(mandate_id, category_ident);
CREATE INDEX IF NOT EXISTS idx_products_mandate_category ON products(mandate_id, category_ident);
CREATE INDEX IF NOT EXISTS idx_opportunities_mandate ON opportunities(mandate_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_consultant_closed ON opportunities(consultant_id, closed_at);
CREATE INDEX IF NOT EXISTS idx_offers_mandate_category ON offers(mandate_id, category_ident);
CREATE INDEX IF NOT EXISTS idx_performances_consultant_date ON monthly_admin_performances(consultant_id, calculation_date DESC);
`

const (
	sqlGetMandate = `SELECT id, state, first_name, last_name, COALESCE(gender, ''), birthdate FROM mandates WHERE id = $1`

	sqlGetAnswers = `SELECT question_ident, answer FROM questionnaire_answers WHERE mandate_id = $1 ORDER BY id`

	sqlSaveAnswer = `INSERT INTO questionnaire_answers (mandate_id, question_ident, answer, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (mandate_id, question_ident) DO UPDATE SET answer = EXCLUDED.answer, updated_at = now()`

	sqlGetRecommendations = `SELECT id, mandate_id, category_ident, level, is_mandatory FROM recommendations WHERE mandate_id = $1 ORDER BY category_ident`

	sqlUpsertRecommendation = `INSERT INTO recommendations (mandate_id, category_ident, level, is_mandatory, updated_at) VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (mandate_id, category_ident) DO UPDATE SET level = EXCLUDED.level, is_mandatory = EXCLUDED.is_mandatory, updated_at = now()
		RETURNING id`

	sqlDeleteRecommendation = `DELETE FROM recommendations WHERE mandate_id = $1 AND category_ident = $2`

	sqlActiveOfferExists = `SELECT EXISTS (SELECT 1 FROM offers WHERE mandate_id = $1 AND category_ident = $2 AND state = 'active')`

	sqlGetOccupation = `SELECT id, name, normalized_name, bu_question, bu_answer, du_question, du_answer FROM occupations WHERE normalized_name = $1`
)

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Mandate(ctx context.Context, id int64) (*model.Mandate, error) {
	var m model.Mandate
	var birthdate *time.Time
	err := s.pool.QueryRow(ctx, sqlGetMandate, id).
		Scan(&m.ID, &m.State, &m.FirstName, &m.LastName, &m.Gender, &birthdate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: mandate %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get mandate %d", id)
	}
	m.Birthdate = birthdate
	return &m, nil
}

func (s *PostgresStore) UpdateMandateBirthdate(ctx context.Context, id int64, birthdate time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE mandates SET birthdate = $1, updated_at = now() WHERE id = $2`,
		birthdate, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update mandate %d birthdate", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: mandate %d", id)
	}
	return nil
}

func (s *PostgresStore) UpdateMandateGender(ctx context.Context, id int64, gender model.Gender) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE mandates SET gender = $1, updated_at = now() WHERE id = $2`,
		string(gender), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update mandate %d gender", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: mandate %d", id)
	}
	return nil
}

func (s *PostgresStore) Answers(ctx context.Context, mandateID int64) (model.Answers, error) {
	rows, err := s.pool.Query(ctx, sqlGetAnswers, mandateID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get answers for mandate %d", mandateID)
	}
	defer rows.Close()

	var answers model.Answers
	for rows.Next() {
		var a model.QuestionAnswer
		if err := rows.Scan(&a.QuestionIdent, &a.Text); err != nil {
			return nil, eris.Wrap(err, "postgres: scan answer")
		}
		answers = append(answers, a)
	}
	return answers, eris.Wrap(rows.Err(), "postgres: iterate answers")
}

func (s *PostgresStore) SaveAnswer(ctx context.Context, mandateID int64, answer model.QuestionAnswer) error {
	if _, err := s.pool.Exec(ctx, sqlSaveAnswer, mandateID, answer.QuestionIdent, answer.Text); err != nil {
		return eris.Wrapf(err, "postgres: save answer %s", answer.QuestionIdent)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profile_data (mandate_id, question_ident, value, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (mandate_id, question_ident) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		mandateID, answer.QuestionIdent, answer.Text,
	)
	return eris.Wrapf(err, "postgres: save profile data %s", answer.QuestionIdent)
}

func (s *PostgresStore) DeleteProfileData(ctx context.Context, mandateID int64, questionIdent string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM profile_data WHERE mandate_id = $1 AND question_ident = $2`,
		mandateID, questionIdent,
	); err != nil {
		return eris.Wrapf(err, "postgres: delete profile data %s", questionIdent)
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM questionnaire_answers WHERE mandate_id = $1 AND question_ident = $2`,
		mandateID, questionIdent,
	)
	return eris.Wrapf(err, "postgres: delete answer %s", questionIdent)
}

func (s *PostgresStore) CompleteResponse(ctx context.Context, mandateID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO questionnaire_responses (mandate_id, state, completed_at) VALUES ($1, 'completed', now())
		ON CONFLICT (mandate_id) DO UPDATE SET state = 'completed', completed_at = now()`,
		mandateID,
	)
	return eris.Wrapf(err, "postgres: complete response for mandate %d", mandateID)
}

func (s *PostgresStore) Recommendations(ctx context.Context, mandateID int64) ([]model.Recommendation, error) {
	rows, err := s.pool.Query(ctx, sqlGetRecommendations, mandateID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get recommendations for mandate %d", mandateID)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		var r model.Recommendation
		if err := rows.Scan(&r.ID, &r.MandateID, &r.CategoryIdent, &r.Level, &r.IsMandatory); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recommendation")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: iterate recommendations")
}

func (s *PostgresStore) UpsertRecommendation(ctx context.Context, rec *model.Recommendation) error {
	err := s.pool.QueryRow(ctx, sqlUpsertRecommendation,
		rec.MandateID, rec.CategoryIdent, string(rec.Level), rec.IsMandatory,
	).Scan(&rec.ID)
	return eris.Wrapf(err, "postgres: upsert recommendation %s", rec.CategoryIdent)
}

func (s *PostgresStore) DeleteRecommendation(ctx context.Context, mandateID int64, categoryIdent string) error {
	_, err := s.pool.Exec(ctx, sqlDeleteRecommendation, mandateID, categoryIdent)
	return eris.Wrapf(err, "postgres: delete recommendation %s", categoryIdent)
}

func (s *PostgresStore) CategoryByIdent(ctx context.Context, ident string) (*model.Category, error) {
	var c model.Category
	var included []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, ident, name, category_type, included_category_idents FROM categories WHERE ident = $1`,
		ident,
	).Scan(&c.ID, &c.Ident, &c.Name, &c.Type, &included)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get category %s", ident)
	}
	if err := json.Unmarshal(included, &c.IncludedCategoryIdents); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal included categories for %s", ident)
	}
	return &c, nil
}

func (s *PostgresStore) CategoryInstances(ctx context.Context, mandateID int64, categoryIdent string) (model.CategoryInstances, error) {
	var instances model.CategoryInstances

	rows, err := s.pool.Query(ctx,
		`SELECT id, state FROM inquiries WHERE mandate_id = $1 AND category_ident = $2`,
		mandateID, categoryIdent,
	)
	if err != nil {
		return instances, eris.Wrap(err, "postgres: get inquiries")
	}
	for rows.Next() {
		inq := model.Inquiry{MandateID: mandateID, CategoryIdent: categoryIdent}
		if err := rows.Scan(&inq.ID, &inq.State); err != nil {
			rows.Close()
			return instances, eris.Wrap(err, "postgres: scan inquiry")
		}
		instances.Inquiries = append(instances.Inquiries, inq)
	}
	rows.Close()
	if rows.Err() != nil {
		return instances, eris.Wrap(rows.Err(), "postgres: iterate inquiries")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT id, state FROM products WHERE mandate_id = $1 AND category_ident = $2`,
		mandateID, categoryIdent,
	)
	if err != nil {
		return instances, eris.Wrap(err, "postgres: get products")
	}
	for rows.Next() {
		p := model.Product{MandateID: mandateID, CategoryIdent: categoryIdent}
		if err := rows.Scan(&p.ID, &p.State); err != nil {
			rows.Close()
			return instances, eris.Wrap(err, "postgres: scan product")
		}
		instances.Products = append(instances.Products, p)
	}
	rows.Close()
	if rows.Err() != nil {
		return instances, eris.Wrap(rows.Err(), "postgres: iterate products")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT o.id, o.state, o.category_id FROM opportunities o
		JOIN categories c ON c.id = o.category_id
		WHERE o.mandate_id = $1 AND c.ident = $2`,
		mandateID, categoryIdent,
	)
	if err != nil {
		return instances, eris.Wrap(err, "postgres: get opportunities")
	}
	for rows.Next() {
		o := model.Opportunity{MandateID: mandateID, CategoryIdent: categoryIdent}
		if err := rows.Scan(&o.ID, &o.State, &o.CategoryID); err != nil {
			rows.Close()
			return instances, eris.Wrap(err, "postgres: scan opportunity")
		}
		instances.Opportunities = append(instances.Opportunities, o)
	}
	rows.Close()
	return instances, eris.Wrap(rows.Err(), "postgres: iterate opportunities")
}

func (s *PostgresStore) ActiveOfferExists(ctx context.Context, mandateID int64, categoryIdent string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, sqlActiveOfferExists, mandateID, categoryIdent).Scan(&exists)
	return exists, eris.Wrapf(err, "postgres: check offer for %s", categoryIdent)
}

func (s *PostgresStore) OccupationByNormalizedName(ctx context.Context, name string) (*model.Occupation, error) {
	var o model.Occupation
	var buQ, buA, duQ, duA *string
	err := s.pool.QueryRow(ctx, sqlGetOccupation, name).
		Scan(&o.ID, &o.Name, &o.NormalizedName, &buQ, &buA, &duQ, &duA)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get occupation %s", name)
	}
	if buQ != nil && buA != nil {
		o.BUCondition = &model.AnswerCondition{QuestionIdent: *buQ, Answer: *buA}
	}
	if duQ != nil && duA != nil {
		o.DUCondition = &model.AnswerCondition{QuestionIdent: *duQ, Answer: *duA}
	}
	return &o, nil
}

func (s *PostgresStore) UpsertOccupations(ctx context.Context, occupations []model.Occupation) (int64, error) {
	rows := make([][]any, 0, len(occupations))
	for _, o := range occupations {
		var buQ, buA, duQ, duA *string
		if o.BUCondition != nil {
			buQ, buA = &o.BUCondition.QuestionIdent, &o.BUCondition.Answer
		}
		if o.DUCondition != nil {
			duQ, duA = &o.DUCondition.QuestionIdent, &o.DUCondition.Answer
		}
		rows = append(rows, []any{o.Name, o.NormalizedName, buQ, buA, duQ, duA})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "occupations",
		Columns:      []string{"name", "normalized_name", "bu_question", "bu_answer", "du_question", "du_answer"},
		ConflictKeys: []string{"normalized_name"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert occupations")
}

func (s *PostgresStore) Opportunity(ctx context.Context, id int64) (*model.Opportunity, error) {
	var o model.Opportunity
	err := s.pool.QueryRow(ctx,
		`SELECT o.id, o.mandate_id, o.category_id, c.ident, o.state, o.consultant_id, o.sold_product_id
		FROM opportunities o JOIN categories c ON c.id = o.category_id
		WHERE o.id = $1`,
		id,
	).Scan(&o.ID, &o.MandateID, &o.CategoryID, &o.CategoryIdent, &o.State, &o.ConsultantID, &o.SoldProductID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: opportunity %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get opportunity %d", id)
	}
	return &o, nil
}

func (s *PostgresStore) AssignConsultant(ctx context.Context, opportunityID, consultantID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET consultant_id = $1 WHERE id = $2`,
		consultantID, opportunityID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: assign opportunity %d", opportunityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: opportunity %d", opportunityID)
	}
	return nil
}

func (s *PostgresStore) ClosedOpportunitiesFor(ctx context.Context, month time.Time, consultantIDs, categoryIDs []int64) (map[int64][]model.ClosedOpportunityRecord, error) {
	query := `SELECT consultant_id, state = 'completed', avg_open_opportunities, generated_revenue
		FROM opportunities
		WHERE consultant_id IS NOT NULL AND closed_at >= $1 AND closed_at < $2`
	args := []any{month, month.AddDate(0, 1, 0)}

	if len(consultantIDs) > 0 {
		query += ` AND consultant_id = ANY($3)`
		args = append(args, consultantIDs)
		if len(categoryIDs) > 0 {
			query += ` AND category_id = ANY($4)`
			args = append(args, categoryIDs)
		}
	} else if len(categoryIDs) > 0 {
		query += ` AND category_id = ANY($3)`
		args = append(args, categoryIDs)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get closed opportunities")
	}
	defer rows.Close()

	out := make(map[int64][]model.ClosedOpportunityRecord)
	for rows.Next() {
		var consultantID int64
		var rec model.ClosedOpportunityRecord
		if err := rows.Scan(&consultantID, &rec.ClosedSuccessfully, &rec.AvgOpenOpportunities, &rec.GeneratedRevenueSoFar); err != nil {
			return nil, eris.Wrap(err, "postgres: scan closed opportunity")
		}
		out[consultantID] = append(out[consultantID], rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate closed opportunities")
}

func (s *PostgresStore) OpenOpportunitiesFor(ctx context.Context, consultantIDs, categoryIDs []int64) (map[int64]model.OpenOpportunities, error) {
	query := `SELECT o.consultant_id, c.ident, count(*)
		FROM opportunities o JOIN categories c ON c.id = o.category_id
		WHERE o.consultant_id IS NOT NULL AND o.state NOT IN ('completed', 'lost')`
	var args []any

	if len(consultantIDs) > 0 {
		query += ` AND o.consultant_id = ANY($1)`
		args = append(args, consultantIDs)
		if len(categoryIDs) > 0 {
			query += ` AND o.category_id = ANY($2)`
			args = append(args, categoryIDs)
		}
	} else if len(categoryIDs) > 0 {
		query += ` AND o.category_id = ANY($1)`
		args = append(args, categoryIDs)
	}
	query += ` GROUP BY o.consultant_id, c.ident`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get open opportunities")
	}
	defer rows.Close()

	out := make(map[int64]model.OpenOpportunities)
	for rows.Next() {
		var consultantID int64
		var ident string
		var count int
		if err := rows.Scan(&consultantID, &ident, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan open opportunities")
		}
		open := out[consultantID]
		if open.CategoryCounts == nil {
			open.CategoryCounts = make(map[string]int)
		}
		open.Count += count
		open.CategoryCounts[ident] = count
		out[consultantID] = open
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate open opportunities")
}

func (s *PostgresStore) LatestPerformanceMatrixFor(ctx context.Context, algoVersion string, consultantIDs []int64) (map[int64]performance.PriorAverage, error) {
	out := make(map[int64]performance.PriorAverage, len(consultantIDs))
	for _, id := range consultantIDs {
		var matrixJSON []byte
		var count int
		err := s.pool.QueryRow(ctx,
			`SELECT m1.performance_matrix,
				(SELECT count(*) FROM monthly_admin_performances m2
				 WHERE m2.consultant_id = m1.consultant_id AND m2.algo_version = m1.algo_version)
			FROM monthly_admin_performances m1
			WHERE m1.consultant_id = $1 AND m1.algo_version = $2
			ORDER BY m1.calculation_date DESC LIMIT 1`,
			id, algoVersion,
		).Scan(&matrixJSON, &count)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: get latest matrix for consultant %d", id)
		}

		var matrix model.PerformanceMatrix
		if err := json.Unmarshal(matrixJSON, &matrix); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal matrix for consultant %d", id)
		}
		out[id] = performance.PriorAverage{Matrix: matrix, Count: count}
	}
	return out, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.MonthlyAdminPerformance) error {
	countsJSON, err := json.Marshal(snap.OpenOpportunitiesCategoryCounts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal category counts")
	}
	levelJSON, err := json.Marshal(snap.PerformanceLevel)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal performance level")
	}
	matrixJSON, err := json.Marshal(snap.PerformanceMatrix)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal matrix")
	}

	if snap.ID != 0 {
		_, err := s.pool.Exec(ctx,
			`UPDATE monthly_admin_performances
			SET revenue = $1, open_opportunities = $2, category_counts = $3,
				performance_level = $4, performance_matrix = $5, updated_at = now()
			WHERE id = $6`,
			snap.Revenue, snap.OpenOpportunities, countsJSON, levelJSON, matrixJSON, snap.ID,
		)
		return eris.Wrapf(err, "postgres: update snapshot %d", snap.ID)
	}

	// The unique key keeps concurrent population runs from duplicating a
	// month.
	err = s.pool.QueryRow(ctx,
		`INSERT INTO monthly_admin_performances
			(consultant_id, calculation_date, revenue, open_opportunities, category_counts, performance_level, performance_matrix, algo_version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (consultant_id, calculation_date, algo_version) DO UPDATE
			SET revenue = EXCLUDED.revenue, open_opportunities = EXCLUDED.open_opportunities,
				category_counts = EXCLUDED.category_counts, performance_level = EXCLUDED.performance_level,
				performance_matrix = EXCLUDED.performance_matrix, updated_at = now()
		RETURNING id`,
		snap.ConsultantID, snap.CalculationDate, snap.Revenue, snap.OpenOpportunities,
		countsJSON, levelJSON, matrixJSON, snap.AlgoVersion,
	).Scan(&snap.ID)
	return eris.Wrap(err, "postgres: insert snapshot")
}

func (s *PostgresStore) SnapshotFor(ctx context.Context, consultantID int64, month time.Time, algoVersion string) (*model.MonthlyAdminPerformance, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, consultant_id, calculation_date, revenue, open_opportunities, category_counts, performance_level, performance_matrix, algo_version
		FROM monthly_admin_performances
		WHERE consultant_id = $1 AND calculation_date = $2 AND algo_version = $3`,
		consultantID, month, algoVersion,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

func (s *PostgresStore) LastSnapshotDate(ctx context.Context, consultantID int64, algoVersion string) (*time.Time, error) {
	var date time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT calculation_date FROM monthly_admin_performances
		WHERE consultant_id = $1 AND algo_version = $2
		ORDER BY calculation_date DESC LIMIT 1`,
		consultantID, algoVersion,
	).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get last snapshot date for consultant %d", consultantID)
	}
	return &date, nil
}

func (s *PostgresStore) DeleteSnapshotsSince(ctx context.Context, consultantID int64, since time.Time, algoVersion string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM monthly_admin_performances
		WHERE consultant_id = $1 AND algo_version = $2 AND calculation_date >= $3`,
		consultantID, algoVersion, since,
	)
	return eris.Wrapf(err, "postgres: delete snapshots for consultant %d", consultantID)
}

func (s *PostgresStore) Snapshots(ctx context.Context, algoVersion string) ([]model.MonthlyAdminPerformance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, consultant_id, calculation_date, revenue, open_opportunities, category_counts, performance_level, performance_matrix, algo_version
		FROM monthly_admin_performances
		WHERE algo_version = $1
		ORDER BY consultant_id, calculation_date`,
		algoVersion,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get snapshots")
	}
	defer rows.Close()

	var out []model.MonthlyAdminPerformance
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate snapshots")
}

func (s *PostgresStore) SalesConsultationPermitted(ctx context.Context, adminID int64) (bool, error) {
	var permitted bool
	err := s.pool.QueryRow(ctx,
		`SELECT sales_consultation FROM admins WHERE id = $1 AND active`,
		adminID,
	).Scan(&permitted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return permitted, eris.Wrapf(err, "postgres: check sales consultation for admin %d", adminID)
}

func (s *PostgresStore) ActiveSalesConsultants(ctx context.Context) ([]model.Admin, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, active, sales_consultation FROM admins
		WHERE active AND sales_consultation ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get consultants")
	}
	defer rows.Close()

	var out []model.Admin
	for rows.Next() {
		var a model.Admin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Active, &a.SalesConsultation); err != nil {
			return nil, eris.Wrap(err, "postgres: scan admin")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate consultants")
}

func (s *PostgresStore) PerformanceClassifications(ctx context.Context, consultantIDs []int64) (map[int64]map[string]string, error) {
	query := `SELECT admin_id, category_ident, level FROM admin_performance_classifications`
	var args []any
	if len(consultantIDs) > 0 {
		query += ` WHERE admin_id = ANY($1)`
		args = append(args, consultantIDs)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get classifications")
	}
	defer rows.Close()

	out := make(map[int64]map[string]string)
	for rows.Next() {
		var adminID int64
		var ident, level string
		if err := rows.Scan(&adminID, &ident, &level); err != nil {
			return nil, eris.Wrap(err, "postgres: scan classification")
		}
		if out[adminID] == nil {
			out[adminID] = make(map[string]string)
		}
		out[adminID][ident] = level
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate classifications")
}

func (s *PostgresStore) CategoriesUsedInAoa(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM categories WHERE used_in_aoa ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get aoa categories")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan aoa category")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate aoa categories")
}

// scanSnapshot reads one monthly_admin_performances row.
func scanSnapshot(row pgx.Row) (*model.MonthlyAdminPerformance, error) {
	var snap model.MonthlyAdminPerformance
	var countsJSON, levelJSON, matrixJSON []byte
	err := row.Scan(&snap.ID, &snap.ConsultantID, &snap.CalculationDate, &snap.Revenue,
		&snap.OpenOpportunities, &countsJSON, &levelJSON, &matrixJSON, &snap.AlgoVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan snapshot")
	}

	if err := json.Unmarshal(countsJSON, &snap.OpenOpportunitiesCategoryCounts); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal category counts")
	}
	if err := json.Unmarshal(levelJSON, &snap.PerformanceLevel); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal performance level")
	}
	if err := json.Unmarshal(matrixJSON, &snap.PerformanceMatrix); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal matrix")
	}
	return &snap, nil
}

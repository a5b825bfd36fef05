package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/performance"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS mandates (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	state      TEXT NOT NULL DEFAULT 'in_creation',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	gender     TEXT,
	birthdate  TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS questionnaire_answers (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id     INTEGER NOT NULL REFERENCES mandates(id),
	question_ident TEXT NOT NULL,
	answer         TEXT NOT NULL,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (mandate_id, question_ident)
);

CREATE TABLE IF NOT EXISTS profile_data (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id     INTEGER NOT NULL REFERENCES mandates(id),
	question_ident TEXT NOT NULL,
	value          TEXT NOT NULL,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (mandate_id, question_ident)
);

CREATE TABLE IF NOT EXISTS questionnaire_responses (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id   INTEGER NOT NULL UNIQUE REFERENCES mandates(id),
	state        TEXT NOT NULL DEFAULT 'in_progress',
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS categories (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	ident                    TEXT NOT NULL UNIQUE,
	name                     TEXT NOT NULL DEFAULT '',
	category_type            TEXT NOT NULL DEFAULT 'normal',
	included_category_idents TEXT NOT NULL DEFAULT '[]',
	used_in_aoa              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recommendations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id     INTEGER NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	level          TEXT NOT NULL DEFAULT 'recommended',
	is_mandatory   INTEGER NOT NULL DEFAULT 0,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (mandate_id, category_ident)
);

CREATE TABLE IF NOT EXISTS inquiries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id     INTEGER NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	state          TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS products (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id     INTEGER NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	state          TEXT NOT NULL DEFAULT 'details_available'
);

CREATE TABLE IF NOT EXISTS opportunities (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id             INTEGER NOT NULL REFERENCES mandates(id),
	category_id            INTEGER NOT NULL REFERENCES categories(id),
	state                  TEXT NOT NULL DEFAULT 'created',
	consultant_id          INTEGER,
	sold_product_id        INTEGER,
	closed_at              TEXT,
	avg_open_opportunities REAL NOT NULL DEFAULT 0,
	generated_revenue      REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS offers (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	mandate_id     INTEGER NOT NULL REFERENCES mandates(id),
	category_ident TEXT NOT NULL,
	state          TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS occupations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL UNIQUE,
	bu_question     TEXT,
	bu_answer       TEXT,
	du_question     TEXT,
	du_answer       TEXT
);

CREATE TABLE IF NOT EXISTS admins (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	name               TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	active             INTEGER NOT NULL DEFAULT 1,
	sales_consultation INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS monthly_admin_performances (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	consultant_id      INTEGER NOT NULL REFERENCES admins(id),
	calculation_date   TEXT NOT NULL,
	revenue            REAL NOT NULL DEFAULT 0,
	open_opportunities INTEGER NOT NULL DEFAULT 0,
	category_counts    TEXT NOT NULL DEFAULT '{}',
	performance_level  TEXT NOT NULL DEFAULT '{}',
	performance_matrix TEXT NOT NULL DEFAULT '{}',
	algo_version       TEXT NOT NULL,
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (consultant_id, calculation_date, algo_version)
);

CREATE TABLE IF NOT EXISTS admin_performance_classifications (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	admin_id       INTEGER NOT NULL REFERENCES admins(id),
	category_ident TEXT NOT NULL,
	level          TEXT NOT NULL,
	UNIQUE (admin_id, category_ident)
);

CREATE INDEX IF NOT EXISTS idx_answers_mandate ON questionnaire_answers(mandate_id);
CREATE INDEX IF NOT EXISTS idx_recommendations_mandate ON recommendations(mandate_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_consultant_closed ON opportunities(consultant_id, closed_at);
CREATE INDEX IF NOT EXISTS idx_performances_consultant_date ON monthly_admin_performances(consultant_id, calculation_date DESC);
`

// Dates are stored as text so that range scans and equality stay
// well-defined across drivers.
const (
	sqliteDateLayout = "2006-01-02"
	sqliteTimeLayout = "2006-01-02 15:04:05"
)

func sqliteDate(t time.Time) string {
	return t.UTC().Format(sqliteDateLayout)
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSqliteDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteDateLayout, s, time.UTC)
	return t, eris.Wrapf(err, "sqlite: parse date %q", s)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Mandate(ctx context.Context, id int64) (*model.Mandate, error) {
	var m model.Mandate
	var gender, birthdate sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, state, first_name, last_name, gender, birthdate FROM mandates WHERE id = ?`, id,
	).Scan(&m.ID, &m.State, &m.FirstName, &m.LastName, &gender, &birthdate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: mandate %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get mandate %d", id)
	}
	m.Gender = model.Gender(gender.String)
	if birthdate.Valid {
		b, err := parseSqliteDate(birthdate.String)
		if err != nil {
			return nil, err
		}
		m.Birthdate = &b
	}
	return &m, nil
}

func (s *SQLiteStore) UpdateMandateBirthdate(ctx context.Context, id int64, birthdate time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mandates SET birthdate = ?, updated_at = datetime('now') WHERE id = ?`,
		sqliteDate(birthdate), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update mandate %d birthdate", id)
	}
	return notFoundWhenZero(res, "sqlite: mandate %d", id)
}

func (s *SQLiteStore) UpdateMandateGender(ctx context.Context, id int64, gender model.Gender) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mandates SET gender = ?, updated_at = datetime('now') WHERE id = ?`,
		string(gender), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update mandate %d gender", id)
	}
	return notFoundWhenZero(res, "sqlite: mandate %d", id)
}

func (s *SQLiteStore) Answers(ctx context.Context, mandateID int64) (model.Answers, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_ident, answer FROM questionnaire_answers WHERE mandate_id = ? ORDER BY id`,
		mandateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get answers for mandate %d", mandateID)
	}
	defer rows.Close()

	var answers model.Answers
	for rows.Next() {
		var a model.QuestionAnswer
		if err := rows.Scan(&a.QuestionIdent, &a.Text); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan answer")
		}
		answers = append(answers, a)
	}
	return answers, eris.Wrap(rows.Err(), "sqlite: iterate answers")
}

func (s *SQLiteStore) SaveAnswer(ctx context.Context, mandateID int64, answer model.QuestionAnswer) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO questionnaire_answers (mandate_id, question_ident, answer, updated_at) VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (mandate_id, question_ident) DO UPDATE SET answer = excluded.answer, updated_at = datetime('now')`,
		mandateID, answer.QuestionIdent, answer.Text,
	); err != nil {
		return eris.Wrapf(err, "sqlite: save answer %s", answer.QuestionIdent)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_data (mandate_id, question_ident, value, updated_at) VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (mandate_id, question_ident) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		mandateID, answer.QuestionIdent, answer.Text,
	)
	return eris.Wrapf(err, "sqlite: save profile data %s", answer.QuestionIdent)
}

func (s *SQLiteStore) DeleteProfileData(ctx context.Context, mandateID int64, questionIdent string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM profile_data WHERE mandate_id = ? AND question_ident = ?`,
		mandateID, questionIdent,
	); err != nil {
		return eris.Wrapf(err, "sqlite: delete profile data %s", questionIdent)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM questionnaire_answers WHERE mandate_id = ? AND question_ident = ?`,
		mandateID, questionIdent,
	)
	return eris.Wrapf(err, "sqlite: delete answer %s", questionIdent)
}

func (s *SQLiteStore) CompleteResponse(ctx context.Context, mandateID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questionnaire_responses (mandate_id, state, completed_at) VALUES (?, 'completed', datetime('now'))
		ON CONFLICT (mandate_id) DO UPDATE SET state = 'completed', completed_at = datetime('now')`,
		mandateID,
	)
	return eris.Wrapf(err, "sqlite: complete response for mandate %d", mandateID)
}

func (s *SQLiteStore) Recommendations(ctx context.Context, mandateID int64) ([]model.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mandate_id, category_ident, level, is_mandatory FROM recommendations WHERE mandate_id = ? ORDER BY category_ident`,
		mandateID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get recommendations for mandate %d", mandateID)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		var r model.Recommendation
		if err := rows.Scan(&r.ID, &r.MandateID, &r.CategoryIdent, &r.Level, &r.IsMandatory); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recommendation")
		}
		recs = append(recs, r)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate recommendations")
}

func (s *SQLiteStore) UpsertRecommendation(ctx context.Context, rec *model.Recommendation) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO recommendations (mandate_id, category_ident, level, is_mandatory, updated_at) VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT (mandate_id, category_ident) DO UPDATE SET level = excluded.level, is_mandatory = excluded.is_mandatory, updated_at = datetime('now')
		RETURNING id`,
		rec.MandateID, rec.CategoryIdent, string(rec.Level), rec.IsMandatory,
	).Scan(&rec.ID)
	return eris.Wrapf(err, "sqlite: upsert recommendation %s", rec.CategoryIdent)
}

func (s *SQLiteStore) DeleteRecommendation(ctx context.Context, mandateID int64, categoryIdent string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM recommendations WHERE mandate_id = ? AND category_ident = ?`,
		mandateID, categoryIdent,
	)
	return eris.Wrapf(err, "sqlite: delete recommendation %s", categoryIdent)
}

func (s *SQLiteStore) CategoryByIdent(ctx context.Context, ident string) (*model.Category, error) {
	var c model.Category
	var included string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, ident, name, category_type, included_category_idents FROM categories WHERE ident = ?`,
		ident,
	).Scan(&c.ID, &c.Ident, &c.Name, &c.Type, &included)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get category %s", ident)
	}
	if err := json.Unmarshal([]byte(included), &c.IncludedCategoryIdents); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal included categories for %s", ident)
	}
	return &c, nil
}

func (s *SQLiteStore) CategoryInstances(ctx context.Context, mandateID int64, categoryIdent string) (model.CategoryInstances, error) {
	var instances model.CategoryInstances

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state FROM inquiries WHERE mandate_id = ? AND category_ident = ?`,
		mandateID, categoryIdent,
	)
	if err != nil {
		return instances, eris.Wrap(err, "sqlite: get inquiries")
	}
	for rows.Next() {
		inq := model.Inquiry{MandateID: mandateID, CategoryIdent: categoryIdent}
		if err := rows.Scan(&inq.ID, &inq.State); err != nil {
			rows.Close()
			return instances, eris.Wrap(err, "sqlite: scan inquiry")
		}
		instances.Inquiries = append(instances.Inquiries, inq)
	}
	rows.Close()
	if rows.Err() != nil {
		return instances, eris.Wrap(rows.Err(), "sqlite: iterate inquiries")
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, state FROM products WHERE mandate_id = ? AND category_ident = ?`,
		mandateID, categoryIdent,
	)
	if err != nil {
		return instances, eris.Wrap(err, "sqlite: get products")
	}
	for rows.Next() {
		p := model.Product{MandateID: mandateID, CategoryIdent: categoryIdent}
		if err := rows.Scan(&p.ID, &p.State); err != nil {
			rows.Close()
			return instances, eris.Wrap(err, "sqlite: scan product")
		}
		instances.Products = append(instances.Products, p)
	}
	rows.Close()
	if rows.Err() != nil {
		return instances, eris.Wrap(rows.Err(), "sqlite: iterate products")
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT o.id, o.state, o.category_id FROM opportunities o
		JOIN categories c ON c.id = o.category_id
		WHERE o.mandate_id = ? AND c.ident = ?`,
		mandateID, categoryIdent,
	)
	if err != nil {
		return instances, eris.Wrap(err, "sqlite: get opportunities")
	}
	for rows.Next() {
		o := model.Opportunity{MandateID: mandateID, CategoryIdent: categoryIdent}
		if err := rows.Scan(&o.ID, &o.State, &o.CategoryID); err != nil {
			rows.Close()
			return instances, eris.Wrap(err, "sqlite: scan opportunity")
		}
		instances.Opportunities = append(instances.Opportunities, o)
	}
	rows.Close()
	return instances, eris.Wrap(rows.Err(), "sqlite: iterate opportunities")
}

func (s *SQLiteStore) ActiveOfferExists(ctx context.Context, mandateID int64, categoryIdent string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM offers WHERE mandate_id = ? AND category_ident = ? AND state = 'active')`,
		mandateID, categoryIdent,
	).Scan(&exists)
	return exists, eris.Wrapf(err, "sqlite: check offer for %s", categoryIdent)
}

func (s *SQLiteStore) OccupationByNormalizedName(ctx context.Context, name string) (*model.Occupation, error) {
	var o model.Occupation
	var buQ, buA, duQ, duA sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, normalized_name, bu_question, bu_answer, du_question, du_answer FROM occupations WHERE normalized_name = ?`,
		name,
	).Scan(&o.ID, &o.Name, &o.NormalizedName, &buQ, &buA, &duQ, &duA)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get occupation %s", name)
	}
	if buQ.Valid && buA.Valid {
		o.BUCondition = &model.AnswerCondition{QuestionIdent: buQ.String, Answer: buA.String}
	}
	if duQ.Valid && duA.Valid {
		o.DUCondition = &model.AnswerCondition{QuestionIdent: duQ.String, Answer: duA.String}
	}
	return &o, nil
}

func (s *SQLiteStore) UpsertOccupations(ctx context.Context, occupations []model.Occupation) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert occupations")
	}
	defer tx.Rollback()

	var n int64
	for _, o := range occupations {
		var buQ, buA, duQ, duA any
		if o.BUCondition != nil {
			buQ, buA = o.BUCondition.QuestionIdent, o.BUCondition.Answer
		}
		if o.DUCondition != nil {
			duQ, duA = o.DUCondition.QuestionIdent, o.DUCondition.Answer
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO occupations (name, normalized_name, bu_question, bu_answer, du_question, du_answer) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (normalized_name) DO UPDATE SET name = excluded.name,
				bu_question = excluded.bu_question, bu_answer = excluded.bu_answer,
				du_question = excluded.du_question, du_answer = excluded.du_answer`,
			o.Name, o.NormalizedName, buQ, buA, duQ, duA,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert occupation %s", o.NormalizedName)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert occupations")
	}
	return n, nil
}

func (s *SQLiteStore) Opportunity(ctx context.Context, id int64) (*model.Opportunity, error) {
	var o model.Opportunity
	var consultantID, soldProductID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT o.id, o.mandate_id, o.category_id, c.ident, o.state, o.consultant_id, o.sold_product_id
		FROM opportunities o JOIN categories c ON c.id = o.category_id
		WHERE o.id = ?`, id,
	).Scan(&o.ID, &o.MandateID, &o.CategoryID, &o.CategoryIdent, &o.State, &consultantID, &soldProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: opportunity %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get opportunity %d", id)
	}
	if consultantID.Valid {
		o.ConsultantID = &consultantID.Int64
	}
	if soldProductID.Valid {
		o.SoldProductID = &soldProductID.Int64
	}
	return &o, nil
}

func (s *SQLiteStore) AssignConsultant(ctx context.Context, opportunityID, consultantID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE opportunities SET consultant_id = ? WHERE id = ?`,
		consultantID, opportunityID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: assign opportunity %d", opportunityID)
	}
	return notFoundWhenZero(res, "sqlite: opportunity %d", opportunityID)
}

func (s *SQLiteStore) ClosedOpportunitiesFor(ctx context.Context, month time.Time, consultantIDs, categoryIDs []int64) (map[int64][]model.ClosedOpportunityRecord, error) {
	query := `SELECT consultant_id, state = 'completed', avg_open_opportunities, generated_revenue
		FROM opportunities
		WHERE consultant_id IS NOT NULL AND closed_at >= ? AND closed_at < ?`
	args := []any{sqliteTime(month), sqliteTime(month.AddDate(0, 1, 0))}
	if len(consultantIDs) > 0 {
		query += ` AND consultant_id IN (` + placeholders(len(consultantIDs)) + `)`
		args = appendIDs(args, consultantIDs)
	}
	if len(categoryIDs) > 0 {
		query += ` AND category_id IN (` + placeholders(len(categoryIDs)) + `)`
		args = appendIDs(args, categoryIDs)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get closed opportunities")
	}
	defer rows.Close()

	out := make(map[int64][]model.ClosedOpportunityRecord)
	for rows.Next() {
		var consultantID int64
		var rec model.ClosedOpportunityRecord
		if err := rows.Scan(&consultantID, &rec.ClosedSuccessfully, &rec.AvgOpenOpportunities, &rec.GeneratedRevenueSoFar); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan closed opportunity")
		}
		out[consultantID] = append(out[consultantID], rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate closed opportunities")
}

func (s *SQLiteStore) OpenOpportunitiesFor(ctx context.Context, consultantIDs, categoryIDs []int64) (map[int64]model.OpenOpportunities, error) {
	query := `SELECT o.consultant_id, c.ident, count(*)
		FROM opportunities o JOIN categories c ON c.id = o.category_id
		WHERE o.consultant_id IS NOT NULL AND o.state NOT IN ('completed', 'lost')`
	var args []any
	if len(consultantIDs) > 0 {
		query += ` AND o.consultant_id IN (` + placeholders(len(consultantIDs)) + `)`
		args = appendIDs(args, consultantIDs)
	}
	if len(categoryIDs) > 0 {
		query += ` AND o.category_id IN (` + placeholders(len(categoryIDs)) + `)`
		args = appendIDs(args, categoryIDs)
	}
	query += ` GROUP BY o.consultant_id, c.ident`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get open opportunities")
	}
	defer rows.Close()

	out := make(map[int64]model.OpenOpportunities)
	for rows.Next() {
		var consultantID int64
		var ident string
		var count int
		if err := rows.Scan(&consultantID, &ident, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan open opportunities")
		}
		open := out[consultantID]
		if open.CategoryCounts == nil {
			open.CategoryCounts = make(map[string]int)
		}
		open.Count += count
		open.CategoryCounts[ident] = count
		out[consultantID] = open
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate open opportunities")
}

func (s *SQLiteStore) LatestPerformanceMatrixFor(ctx context.Context, algoVersion string, consultantIDs []int64) (map[int64]performance.PriorAverage, error) {
	out := make(map[int64]performance.PriorAverage, len(consultantIDs))
	for _, id := range consultantIDs {
		var matrixJSON string
		var count int
		err := s.db.QueryRowContext(ctx,
			`SELECT m1.performance_matrix,
				(SELECT count(*) FROM monthly_admin_performances m2
				 WHERE m2.consultant_id = m1.consultant_id AND m2.algo_version = m1.algo_version)
			FROM monthly_admin_performances m1
			WHERE m1.consultant_id = ? AND m1.algo_version = ?
			ORDER BY m1.calculation_date DESC LIMIT 1`,
			id, algoVersion,
		).Scan(&matrixJSON, &count)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: get latest matrix for consultant %d", id)
		}

		var matrix model.PerformanceMatrix
		if err := json.Unmarshal([]byte(matrixJSON), &matrix); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal matrix for consultant %d", id)
		}
		out[id] = performance.PriorAverage{Matrix: matrix, Count: count}
	}
	return out, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.MonthlyAdminPerformance) error {
	countsJSON, err := json.Marshal(snap.OpenOpportunitiesCategoryCounts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal category counts")
	}
	levelJSON, err := json.Marshal(snap.PerformanceLevel)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal performance level")
	}
	matrixJSON, err := json.Marshal(snap.PerformanceMatrix)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal matrix")
	}

	if snap.ID != 0 {
		_, err := s.db.ExecContext(ctx,
			`UPDATE monthly_admin_performances
			SET revenue = ?, open_opportunities = ?, category_counts = ?,
				performance_level = ?, performance_matrix = ?, updated_at = datetime('now')
			WHERE id = ?`,
			snap.Revenue, snap.OpenOpportunities, string(countsJSON), string(levelJSON), string(matrixJSON), snap.ID,
		)
		return eris.Wrapf(err, "sqlite: update snapshot %d", snap.ID)
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO monthly_admin_performances
			(consultant_id, calculation_date, revenue, open_opportunities, category_counts, performance_level, performance_matrix, algo_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (consultant_id, calculation_date, algo_version) DO UPDATE
			SET revenue = excluded.revenue, open_opportunities = excluded.open_opportunities,
				category_counts = excluded.category_counts, performance_level = excluded.performance_level,
				performance_matrix = excluded.performance_matrix, updated_at = datetime('now')
		RETURNING id`,
		snap.ConsultantID, sqliteDate(snap.CalculationDate), snap.Revenue, snap.OpenOpportunities,
		string(countsJSON), string(levelJSON), string(matrixJSON), snap.AlgoVersion,
	).Scan(&snap.ID)
	return eris.Wrap(err, "sqlite: insert snapshot")
}

func (s *SQLiteStore) SnapshotFor(ctx context.Context, consultantID int64, month time.Time, algoVersion string) (*model.MonthlyAdminPerformance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, consultant_id, calculation_date, revenue, open_opportunities, category_counts, performance_level, performance_matrix, algo_version
		FROM monthly_admin_performances
		WHERE consultant_id = ? AND calculation_date = ? AND algo_version = ?`,
		consultantID, sqliteDate(month), algoVersion,
	)
	snap, err := scanSqliteSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

func (s *SQLiteStore) LastSnapshotDate(ctx context.Context, consultantID int64, algoVersion string) (*time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT calculation_date FROM monthly_admin_performances
		WHERE consultant_id = ? AND algo_version = ?
		ORDER BY calculation_date DESC LIMIT 1`,
		consultantID, algoVersion,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get last snapshot date for consultant %d", consultantID)
	}
	date, err := parseSqliteDate(raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func (s *SQLiteStore) DeleteSnapshotsSince(ctx context.Context, consultantID int64, since time.Time, algoVersion string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM monthly_admin_performances
		WHERE consultant_id = ? AND algo_version = ? AND calculation_date >= ?`,
		consultantID, algoVersion, sqliteDate(since),
	)
	return eris.Wrapf(err, "sqlite: delete snapshots for consultant %d", consultantID)
}

func (s *SQLiteStore) Snapshots(ctx context.Context, algoVersion string) ([]model.MonthlyAdminPerformance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, consultant_id, calculation_date, revenue, open_opportunities, category_counts, performance_level, performance_matrix, algo_version
		FROM monthly_admin_performances
		WHERE algo_version = ?
		ORDER BY consultant_id, calculation_date`,
		algoVersion,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get snapshots")
	}
	defer rows.Close()

	var out []model.MonthlyAdminPerformance
	for rows.Next() {
		snap, err := scanSqliteSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate snapshots")
}

func (s *SQLiteStore) SalesConsultationPermitted(ctx context.Context, adminID int64) (bool, error) {
	var permitted bool
	err := s.db.QueryRowContext(ctx,
		`SELECT sales_consultation FROM admins WHERE id = ? AND active`,
		adminID,
	).Scan(&permitted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return permitted, eris.Wrapf(err, "sqlite: check sales consultation for admin %d", adminID)
}

func (s *SQLiteStore) ActiveSalesConsultants(ctx context.Context) ([]model.Admin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, active, sales_consultation FROM admins
		WHERE active AND sales_consultation ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get consultants")
	}
	defer rows.Close()

	var out []model.Admin
	for rows.Next() {
		var a model.Admin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Active, &a.SalesConsultation); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan admin")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate consultants")
}

func (s *SQLiteStore) PerformanceClassifications(ctx context.Context, consultantIDs []int64) (map[int64]map[string]string, error) {
	query := `SELECT admin_id, category_ident, level FROM admin_performance_classifications`
	var args []any
	if len(consultantIDs) > 0 {
		query += ` WHERE admin_id IN (` + placeholders(len(consultantIDs)) + `)`
		args = appendIDs(args, consultantIDs)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get classifications")
	}
	defer rows.Close()

	out := make(map[int64]map[string]string)
	for rows.Next() {
		var adminID int64
		var ident, level string
		if err := rows.Scan(&adminID, &ident, &level); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan classification")
		}
		if out[adminID] == nil {
			out[adminID] = make(map[string]string)
		}
		out[adminID][ident] = level
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate classifications")
}

func (s *SQLiteStore) CategoriesUsedInAoa(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM categories WHERE used_in_aoa ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get aoa categories")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan aoa category")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate aoa categories")
}

func scanSqliteSnapshot(scan func(dest ...any) error) (*model.MonthlyAdminPerformance, error) {
	var snap model.MonthlyAdminPerformance
	var rawDate, countsJSON, levelJSON, matrixJSON string
	err := scan(&snap.ID, &snap.ConsultantID, &rawDate, &snap.Revenue,
		&snap.OpenOpportunities, &countsJSON, &levelJSON, &matrixJSON, &snap.AlgoVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan snapshot")
	}

	snap.CalculationDate, err = parseSqliteDate(rawDate)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(countsJSON), &snap.OpenOpportunitiesCategoryCounts); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal category counts")
	}
	if err := json.Unmarshal([]byte(levelJSON), &snap.PerformanceLevel); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal performance level")
	}
	if err := json.Unmarshal([]byte(matrixJSON), &snap.PerformanceMatrix); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal matrix")
	}
	return &snap, nil
}

func notFoundWhenZero(res sql.Result, format string, args ...any) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if affected == 0 {
		return eris.Wrapf(ErrNotFound, format, args...)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func appendIDs(args []any, ids []int64) []any {
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/aoa"
	"github.com/clark-group/brokerage-cli/internal/demandcheck"
	"github.com/clark-group/brokerage-cli/internal/performance"
	"github.com/clark-group/brokerage-cli/internal/store"
	"github.com/clark-group/brokerage-cli/pkg/aoaranks"
	sfpkg "github.com/clark-group/brokerage-cli/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "brokerage.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEvents builds the questionnaire-completed event publisher. When
// Salesforce events are disabled no client is constructed at all.
func initEvents() (demandcheck.EventPublisher, error) {
	if !cfg.Salesforce.EventsEnabled {
		return nil, nil
	}
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (BROKERAGE_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return demandcheck.NewSalesforceEvents(sfpkg.NewPublisher(sf)), nil
}

func initResponseBuilder(st store.Store) (*demandcheck.ResponseBuilder, error) {
	events, err := initEvents()
	if err != nil {
		return nil, err
	}
	return demandcheck.NewResponseBuilder(st, demandcheck.NewValidator(), events, cfg.Salesforce.EventsEnabled), nil
}

func initRecommendationBuilder(st store.Store) (*demandcheck.Builder, error) {
	rules, err := demandcheck.LoadRuleSet(cfg.DemandCheck.RulesPath)
	if err != nil {
		return nil, err
	}
	mandatory := demandcheck.NewMandatory(st, rules.Mandatory)
	return demandcheck.NewBuilder(st, mandatory, rules), nil
}

func initPopulator(st store.Store) *performance.Populator {
	buckets := performance.DefaultBuckets()
	window := cfg.Performance.RememberWindowMonths
	monthly := performance.NewMonthlyCalculator(st, buckets)
	rolling := performance.NewRollingCalculator(monthly, buckets, window)
	revenue := performance.NewRevenueCalculator(st, st)
	openLeads := performance.NewOpenLeadsCalculator(st, st)
	return performance.NewPopulator(rolling, monthly, revenue, openLeads,
		st, st, st, st, cfg.Performance.AlgoVersion, window)
}

func initAllocator(st store.Store) *aoa.Allocator {
	ranks := aoaranks.NewClient(cfg.AOA.APIURL,
		aoaranks.WithRateLimit(cfg.AOA.RequestsPerSecond))
	zap.L().Debug("aoa client configured",
		zap.String("api_url", cfg.AOA.APIURL),
		zap.Int("test_percentage", cfg.AOA.TestPercentage))
	return aoa.NewAllocator(ranks, st, st,
		cfg.Performance.AlgoVersion,
		cfg.AOA.AllocationCategory,
		cfg.AOA.TestGroup,
		cfg.AOA.TestPercentage)
}

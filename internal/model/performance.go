package model

import "time"

// Admin is an internal sales agent who can be assigned opportunities.
type Admin struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Active            bool   `json:"active"`
	SalesConsultation bool   `json:"sales_consultation"`
}

// ClosedOpportunityRecord is one closed opportunity in the query window,
// as delivered by the closed-opportunities repository.
type ClosedOpportunityRecord struct {
	ClosedSuccessfully    bool    `json:"closed_successfully"`
	AvgOpenOpportunities  float64 `json:"avg_open_opportunities"`
	GeneratedRevenueSoFar float64 `json:"generated_revenue_so_far"`
}

// OpenOpportunities is the open-pipeline snapshot of one consultant.
type OpenOpportunities struct {
	Count          int            `json:"open_opportunities"`
	CategoryCounts map[string]int `json:"open_opportunities_category_counts"`
}

// MonthlyAdminPerformance is the persisted per-consultant monthly
// performance snapshot. One row exists per (consultant, calculation_date,
// algo_version); calculation_date is month-truncated.
type MonthlyAdminPerformance struct {
	ID                              int64             `json:"id"`
	ConsultantID                    int64             `json:"consultant_id"`
	CalculationDate                 time.Time         `json:"calculation_date"`
	Revenue                         float64           `json:"revenue"`
	OpenOpportunities               int               `json:"open_opportunities"`
	OpenOpportunitiesCategoryCounts map[string]int    `json:"open_opportunities_category_counts"`
	PerformanceLevel                map[string]string `json:"performance_level"`
	PerformanceMatrix               PerformanceMatrix `json:"performance_matrix"`
	AlgoVersion                     string            `json:"algo_version"`
}

// BeginningOfMonth truncates a time to the first day of its month (UTC).
func BeginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

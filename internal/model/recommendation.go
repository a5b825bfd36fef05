package model

// RecommendationLevel is the priority of a recommendation.
type RecommendationLevel string

const (
	LevelDismissed   RecommendationLevel = "dismissed"
	LevelRecommended RecommendationLevel = "recommended"
	LevelImportant   RecommendationLevel = "important"
)

// Recommendation is a suggested insurance category for a mandate.
// At most one exists per (mandate, category).
type Recommendation struct {
	ID            int64               `json:"id"`
	MandateID     int64               `json:"mandate_id"`
	CategoryIdent string              `json:"category_ident"`
	Level         RecommendationLevel `json:"level"`
	IsMandatory   bool                `json:"is_mandatory"`
}

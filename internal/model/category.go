package model

// CategoryType distinguishes plain categories from umbrella categories
// that subsume a set of sub-categories.
type CategoryType string

const (
	CategoryNormal   CategoryType = "normal"
	CategoryUmbrella CategoryType = "umbrella"
)

// Category idents used by the recommendation rule tables. The catalogue
// itself lives in the store; these constants pin the idents the rules
// reference.
const (
	CategoryPHV          = "privathaftpflicht"
	CategoryHausrat      = "hausrat"
	CategoryWohngebaeude = "wohngebaeude"
	CategoryKFZ          = "kfz"
	CategoryTierhalter   = "tierhalterhaftpflicht"
	CategoryRechtsschutz = "rechtsschutz"
	CategoryUnfall       = "unfallversicherung"
	CategoryReisekranken = "reisekrankenversicherung"

	CategoryGKV             = "gkv"
	CategoryPKV             = "pkv"
	CategoryKrankentagegeld = "krankentagegeld"
	CategoryZahnzusatz      = "zahnzusatz"
	CategoryPflege          = "pflegeversicherung"

	CategoryBU             = "berufsunfaehigkeit"
	CategoryDU             = "dienstunfaehigkeit"
	CategoryEU             = "erwerbsunfaehigkeit"
	CategoryArbeitskraft   = "arbeitskraftabsicherung" // umbrella over BU/DU/EU
	CategoryRisikoleben    = "risikolebensversicherung"
	CategoryAltersvorsorge = "altersvorsorge" // umbrella over the retirement products
	CategoryPrivateRente   = "private_rentenversicherung"
	CategoryRiester        = "riester_rente"
	CategoryRuerup         = "basis_rente"
	CategoryGesetzlRente   = "gesetzliche_rente"
)

// Category is read-only catalogue data for the core.
type Category struct {
	ID                     int64        `json:"id"`
	Ident                  string       `json:"ident"`
	Name                   string       `json:"name"`
	Type                   CategoryType `json:"category_type"`
	IncludedCategoryIdents []string     `json:"included_category_idents,omitempty"`
}

// Umbrella reports whether recommending this category obsoletes its subs.
func (c *Category) Umbrella() bool {
	return c.Type == CategoryUmbrella && len(c.IncludedCategoryIdents) > 0
}

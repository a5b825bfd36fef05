package model

// OpportunityState is the sales-pipeline state of an opportunity.
type OpportunityState string

const (
	OpportunityCreated         OpportunityState = "created"
	OpportunityInitiationPhase OpportunityState = "initiation_phase"
	OpportunityOfferPhase      OpportunityState = "offer_phase"
	OpportunityCompleted       OpportunityState = "completed"
	OpportunityLost            OpportunityState = "lost"
)

// Opportunity represents a potential policy sale tied to a category.
type Opportunity struct {
	ID            int64            `json:"id"`
	MandateID     int64            `json:"mandate_id"`
	CategoryID    int64            `json:"category_id"`
	CategoryIdent string           `json:"category_ident"`
	State         OpportunityState `json:"state"`
	ConsultantID  *int64           `json:"consultant_id,omitempty"`
	SoldProductID *int64           `json:"sold_product_id,omitempty"`
}

// Active reports whether the opportunity is still being worked
// (not in a terminal state).
func (o *Opportunity) Active() bool {
	return o.State != OpportunityCompleted && o.State != OpportunityLost
}

// InquiryState is the state of an insurer inquiry.
type InquiryState string

const (
	InquiryPending   InquiryState = "pending"
	InquiryContacted InquiryState = "contacted"
	InquiryCompleted InquiryState = "completed"
	InquiryCanceled  InquiryState = "canceled"
)

// Inquiry is a request to an insurer about an existing policy of the mandate.
type Inquiry struct {
	ID            int64        `json:"id"`
	MandateID     int64        `json:"mandate_id"`
	CategoryIdent string       `json:"category_ident"`
	State         InquiryState `json:"state"`
}

// Active reports whether the inquiry is still open.
func (i *Inquiry) Active() bool {
	return i.State != InquiryCompleted && i.State != InquiryCanceled
}

// ProductState is the state of a product (contract) under management.
type ProductState string

const (
	ProductDetailsAvailable  ProductState = "details_available"
	ProductTakeoverRequested ProductState = "takeover_requested"
	ProductUnderManagement   ProductState = "under_management"
	ProductTerminated        ProductState = "terminated"
	ProductCanceled          ProductState = "canceled"
)

// Product is an insurance contract held by the mandate.
type Product struct {
	ID            int64        `json:"id"`
	MandateID     int64        `json:"mandate_id"`
	CategoryIdent string       `json:"category_ident"`
	State         ProductState `json:"state"`
}

// Active reports whether the contract is still live.
func (p *Product) Active() bool {
	return p.State != ProductTerminated && p.State != ProductCanceled
}

// CategoryInstances bundles the existing inquiries, products and
// opportunities of one mandate for one category.
type CategoryInstances struct {
	Inquiries     []Inquiry     `json:"inquiries"`
	Products      []Product     `json:"products"`
	Opportunities []Opportunity `json:"opportunities"`
}

// Empty reports whether the mandate has no instance of the category at all.
func (ci CategoryInstances) Empty() bool {
	return len(ci.Inquiries) == 0 && len(ci.Products) == 0 && len(ci.Opportunities) == 0
}

// HasActive reports whether any instance is still being worked or live.
func (ci CategoryInstances) HasActive() bool {
	for i := range ci.Inquiries {
		if ci.Inquiries[i].Active() {
			return true
		}
	}
	for i := range ci.Products {
		if ci.Products[i].Active() {
			return true
		}
	}
	for i := range ci.Opportunities {
		if ci.Opportunities[i].Active() {
			return true
		}
	}
	return false
}

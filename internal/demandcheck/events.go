package demandcheck

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/pkg/salesforce"
)

// questionnaireCompletedEvent is the Salesforce platform event emitted
// when an accepted mandate finishes the demand check.
const questionnaireCompletedEvent = "Questionnaire_Completed__e"

// SalesforceEvents publishes questionnaire lifecycle events to Salesforce.
type SalesforceEvents struct {
	publisher salesforce.Publisher
}

// NewSalesforceEvents creates the Salesforce-backed event publisher.
func NewSalesforceEvents(publisher salesforce.Publisher) *SalesforceEvents {
	return &SalesforceEvents{publisher: publisher}
}

// QuestionnaireCompleted emits the completion event for the mandate.
func (e *SalesforceEvents) QuestionnaireCompleted(ctx context.Context, mandate *model.Mandate) (err error) {
	// Event_Uuid__c lets downstream consumers deduplicate redeliveries.
	_, err = e.publisher.PublishEvent(ctx, questionnaireCompletedEvent, map[string]any{
		"Event_Uuid__c":    uuid.NewString(),
		"Mandate_Id__c":    mandate.ID,
		"Completed_At__c":  time.Now().UTC().Format(time.RFC3339),
		"Mandate_State__c": string(mandate.State),
	})
	return err
}

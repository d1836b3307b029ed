package subscription

import (
	"encoding/json"
	"strings"
	"time"
)

// CheckoutEvent is the normalized shape of a provider checkout webhook.
type CheckoutEvent struct {
	EventType         string
	CustomerEmail     string
	ProductID         string
	CheckoutSessionID string
	ProviderOrderID   string
	TransactionID     string
	AmountPaid        float64 // minor units as reported by the provider, 0 when absent
	Currency          string
	OrderType         string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
}

// ParseCheckoutEvent decodes a raw webhook payload into its normalized form.
// Only the fields the reconciler needs are extracted; everything else in the
// payload is ignored.
func ParseCheckoutEvent(payload []byte) (*CheckoutEvent, error) {
	type rawPayload struct {
		EventType string `json:"eventType"`
		Object    struct {
			ID       string `json:"id"`
			Customer struct {
				Email string `json:"email"`
			} `json:"customer"`
			Product struct {
				ID string `json:"id"`
			} `json:"product"`
			Order struct {
				ID          string  `json:"id"`
				Transaction string  `json:"transaction"`
				AmountPaid  float64 `json:"amount_paid"`
				Currency    string  `json:"currency"`
				Type        string  `json:"type"`
			} `json:"order"`
			Subscription struct {
				CurrentPeriodStartDate string `json:"current_period_start_date"`
				CurrentPeriodEndDate   string `json:"current_period_end_date"`
			} `json:"subscription"`
		} `json:"object"`
	}

	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	return &CheckoutEvent{
		EventType:         strings.TrimSpace(raw.EventType),
		CustomerEmail:     strings.TrimSpace(raw.Object.Customer.Email),
		ProductID:         strings.TrimSpace(raw.Object.Product.ID),
		CheckoutSessionID: strings.TrimSpace(raw.Object.ID),
		ProviderOrderID:   strings.TrimSpace(raw.Object.Order.ID),
		TransactionID:     strings.TrimSpace(raw.Object.Order.Transaction),
		AmountPaid:        raw.Object.Order.AmountPaid,
		Currency:          strings.TrimSpace(raw.Object.Order.Currency),
		OrderType:         strings.TrimSpace(raw.Object.Order.Type),
		PeriodStart:       parseProviderTime(raw.Object.Subscription.CurrentPeriodStartDate),
		PeriodEnd:         parseProviderTime(raw.Object.Subscription.CurrentPeriodEndDate),
	}, nil
}

func parseProviderTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

// WebhookResult describes what processing a webhook delivery did.
type WebhookResult struct {
	Ignored   bool
	Duplicate bool
	OrderID   uint
}

// UsageReport is the balance plus active entitlement window returned to the
// usage read endpoint.
type UsageReport struct {
	TotalCredits       int        `json:"total_credits"`
	UsedCredits        int        `json:"used_credits"`
	RemainingCredits   int        `json:"remaining_credits"`
	Tier               string     `json:"tier,omitempty"`
	BillingInterval    string     `json:"billing_interval,omitempty"`
	AutoRenew          *bool      `json:"auto_renew,omitempty"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

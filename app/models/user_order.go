package models

import "time"

const (
	BillingTypeOneTime      = "one_time"
	BillingTypeSubscription = "subscription"
)

const (
	BillingIntervalMonth   = "month"
	BillingIntervalQuarter = "quarter"
	BillingIntervalYear    = "year"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// UserOrder is the immutable record of a purchase. Rows are created already
// paid by the webhook reconciler; checkout itself writes nothing.
type UserOrder struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	PlanID            string     `gorm:"type:varchar(64);not null;index" json:"plan_id"`
	Tier              string     `gorm:"type:varchar(20);not null" json:"tier"`
	BillingType       string     `gorm:"type:varchar(16);not null" json:"billing_type"`
	BillingInterval   string     `gorm:"type:varchar(8);not null" json:"billing_interval"`
	Status            string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	OriginalPrice     float64    `gorm:"not null" json:"original_price"`
	FinalPrice        float64    `gorm:"not null" json:"final_price"`
	Currency          string     `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	PaymentMethod     string     `gorm:"type:varchar(32)" json:"payment_method"`
	TransactionID     string     `gorm:"type:varchar(191);index" json:"transaction_id"`
	CheckoutSessionID string     `gorm:"type:varchar(191);index" json:"checkout_session_id"`
	OrderDate         time.Time  `gorm:"not null" json:"order_date"`
	PaidDate          *time.Time `gorm:"type:timestamp;default:null" json:"paid_date,omitempty"`
	CreditsAmount     int        `gorm:"not null" json:"credits_amount"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

package models

import "time"

const (
	CreditSourceRegistration = "registration"
	CreditSourceOrder        = "order"
	CreditSourceGift         = "gift"
	CreditSourcePromotion    = "promotion"
	CreditSourceRefund       = "refund"
	CreditSourceGeneration   = "generation"
)

// UserCreditHistory is the append-only audit trail of balance changes. Every
// ledger mutation appends exactly one row whose before/after snapshot brackets
// the change. Rows are never updated or deleted.
type UserCreditHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Source         string    `gorm:"type:varchar(16);not null" json:"source"`
	ChangeAmount   int       `gorm:"not null" json:"change_amount"`
	BeforeCredits  int       `gorm:"not null" json:"before_credits"`
	AfterCredits   int       `gorm:"not null" json:"after_credits"`
	OrderID        *uint     `gorm:"index" json:"order_id,omitempty"`
	SubscriptionID *uint     `gorm:"index" json:"subscription_id,omitempty"`
	GenerationID   *uint     `gorm:"index" json:"generation_id,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

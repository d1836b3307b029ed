package models

import "time"

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusPending   = "pending"
)

// UserSubscription tracks the entitlement window for a purchased plan.
//
// Renewing subscriptions carry AutoRenew=true and a null EndDate; their period
// advances only via payment webhooks. One-time purchases are stored as
// non-renewing windows (AutoRenew=false, EndDate set) whose sub-periods are
// advanced locally on usage reads.
//
// A user holds at most one subscription per tier.
type UserSubscription struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;index:ux_user_subscriptions_user_tier,unique,priority:1" json:"user_id"`
	OrderID            uint       `gorm:"not null;index" json:"order_id"`
	Tier               string     `gorm:"type:varchar(20);not null;index:ux_user_subscriptions_user_tier,unique,priority:2" json:"tier"`
	BillingInterval    string     `gorm:"type:varchar(8);not null" json:"billing_interval"`
	Status             string     `gorm:"type:varchar(16);not null;index" json:"status"`
	StartDate          time.Time  `gorm:"not null" json:"start_date"`
	EndDate            *time.Time `gorm:"type:timestamp;default:null" json:"end_date,omitempty"`
	NextBillingDate    *time.Time `gorm:"type:timestamp;default:null" json:"next_billing_date,omitempty"`
	CurrentPeriodStart time.Time  `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `gorm:"not null" json:"current_period_end"`
	AutoRenew          bool       `gorm:"default:true;not null" json:"auto_renew"`
	CancelAtPeriodEnd  bool       `gorm:"default:false;not null" json:"cancel_at_period_end"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsRenewing reports whether period advancement is driven by the payment
// provider rather than by local rollover.
func (s *UserSubscription) IsRenewing() bool {
	return s.AutoRenew
}

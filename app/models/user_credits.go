package models

import "time"

// UserCredits is the single balance row per user. RemainingCredits is the
// authoritative spendable balance; TotalCredits/UsedCredits and the per-source
// columns are informational aggregates and may diverge from total-used after
// expiry events.
//
// Balance rows are mutated only through the subscription service's ledger
// primitives, never directly.
type UserCredits struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalCredits        int       `gorm:"not null;default:0" json:"total_credits"`
	UsedCredits         int       `gorm:"not null;default:0" json:"used_credits"`
	RemainingCredits    int       `gorm:"not null;default:0" json:"remaining_credits"`
	RegistrationCredits int       `gorm:"not null;default:0" json:"registration_credits"`
	OrderCredits        int       `gorm:"not null;default:0" json:"order_credits"`
	GiftCredits         int       `gorm:"not null;default:0" json:"gift_credits"`
	PromotionCredits    int       `gorm:"not null;default:0" json:"promotion_credits"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

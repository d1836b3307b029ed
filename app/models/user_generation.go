package models

import "time"

const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

// UserGeneration records one image generation request and its outcome.
type UserGeneration struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	ModelID      string    `gorm:"type:varchar(191);not null" json:"model_id"`
	Status       string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CreditsUsed  int       `gorm:"not null;default:1" json:"credits_used"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	Prompt       string    `gorm:"type:text" json:"prompt"`
	ResultURL    string    `gorm:"type:text" json:"result_url,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

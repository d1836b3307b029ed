package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/typix-ai/Typix/app/models"
	"github.com/typix-ai/Typix/internal/pkg/cache"
	"github.com/typix-ai/Typix/internal/pkg/subscription"
)

const (
	// creditsPerGeneration is the flat price of one image.
	creditsPerGeneration = 1

	resultCacheTTL = 10 * time.Minute
)

// Service runs generation jobs end to end: it debits the user's credits,
// calls the inference provider and records the outcome. A failed job refunds
// the debit so the user only pays for delivered images.
type Service struct {
	db       *gorm.DB
	billing  *subscription.Service
	provider Provider
}

func NewService(db *gorm.DB, billing *subscription.Service, provider Provider) *Service {
	return &Service{
		db:       db,
		billing:  billing,
		provider: provider,
	}
}

// Generate creates an image for the user. The debit is taken before the
// provider call and refunded when the provider fails.
func (s *Service) Generate(ctx context.Context, userID uint, modelID, prompt string) (*models.UserGeneration, error) {
	if userID == 0 {
		return nil, subscription.NewError(subscription.KindUnauthorized, "user id is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, subscription.NewError(subscription.KindInvalidParameter, "prompt is required")
	}

	generation := &models.UserGeneration{
		UserID:      userID,
		ModelID:     strings.TrimSpace(modelID),
		Status:      models.GenerationStatusPending,
		CreditsUsed: creditsPerGeneration,
		Prompt:      prompt,
	}
	if err := s.db.Create(generation).Error; err != nil {
		return nil, subscription.WrapError(subscription.KindInternal, "generation record creation failed", err)
	}

	if err := s.billing.SpendCredits(ctx, userID, creditsPerGeneration, &generation.ID); err != nil {
		generation.Status = models.GenerationStatusFailed
		generation.ErrorMessage = subscription.MessageOf(err)
		if saveErr := s.db.Save(generation).Error; saveErr != nil {
			log.Printf("[Generate] Failed to mark generation %d failed: %v", generation.ID, saveErr)
		}
		return nil, err
	}

	generation.Status = models.GenerationStatusProcessing
	if err := s.db.Save(generation).Error; err != nil {
		return nil, subscription.WrapError(subscription.KindInternal, "generation record update failed", err)
	}

	result, genErr := s.provider.Generate(ctx, GenerateRequest{
		ModelID: generation.ModelID,
		Prompt:  prompt,
	})
	if genErr != nil {
		generation.Status = models.GenerationStatusFailed
		generation.ErrorMessage = genErr.Error()
		if err := s.db.Save(generation).Error; err != nil {
			log.Printf("[Generate] Failed to mark generation %d failed: %v", generation.ID, err)
		}
		if err := s.billing.RefundCredits(ctx, userID, creditsPerGeneration, &generation.ID); err != nil {
			log.Printf("[Generate] Refund for failed generation %d failed: %v", generation.ID, err)
		}
		return nil, subscription.WrapError(subscription.KindInternal, "image generation failed", genErr)
	}

	generation.Status = models.GenerationStatusCompleted
	generation.ResultURL = result.ImageURL
	if err := s.db.Save(generation).Error; err != nil {
		return nil, subscription.WrapError(subscription.KindInternal, "generation record update failed", err)
	}

	s.cacheResult(generation)
	return generation, nil
}

// GetGeneration returns one of the user's generations. Completed results are
// served from the cache when possible so status polling stays off the DB.
func (s *Service) GetGeneration(ctx context.Context, userID, generationID uint) (*models.UserGeneration, error) {
	_ = ctx
	if userID == 0 {
		return nil, subscription.NewError(subscription.KindUnauthorized, "user id is required")
	}

	if cached := s.cachedResult(userID, generationID); cached != nil {
		return cached, nil
	}

	var generation models.UserGeneration
	err := s.db.Where("id = ? AND user_id = ?", generationID, userID).First(&generation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, subscription.NewError(subscription.KindInvalidParameter, "generation not found")
		}
		return nil, subscription.WrapError(subscription.KindInternal, "generation lookup failed", err)
	}
	return &generation, nil
}

// ListGenerations returns the user's generations, newest first.
func (s *Service) ListGenerations(ctx context.Context, userID uint) ([]models.UserGeneration, error) {
	_ = ctx
	if userID == 0 {
		return nil, subscription.NewError(subscription.KindUnauthorized, "user id is required")
	}

	var generations []models.UserGeneration
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&generations).Error
	if err != nil {
		return nil, subscription.WrapError(subscription.KindInternal, "generation list failed", err)
	}
	return generations, nil
}

// Cache is best effort; a cold or unreachable Redis only costs a DB read.
func (s *Service) cacheResult(generation *models.UserGeneration) {
	encoded, err := json.Marshal(generation)
	if err != nil {
		return
	}
	if err := cache.Set(resultCacheKey(generation.UserID, generation.ID), encoded, resultCacheTTL); err != nil {
		log.Printf("[Generate] Failed to cache generation %d: %v", generation.ID, err)
	}
}

func (s *Service) cachedResult(userID, generationID uint) *models.UserGeneration {
	raw, err := cache.Get(resultCacheKey(userID, generationID))
	if err != nil {
		return nil
	}
	var generation models.UserGeneration
	if err := json.Unmarshal([]byte(raw), &generation); err != nil {
		return nil
	}
	return &generation
}

func resultCacheKey(userID, generationID uint) string {
	return fmt.Sprintf("generation:%d:%d", userID, generationID)
}

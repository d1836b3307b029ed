package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/typix-ai/Typix/app/models"
	"github.com/typix-ai/Typix/internal/pkg/database"
	"github.com/typix-ai/Typix/internal/pkg/subscription"
)

type fakeProvider struct {
	result  *GenerateResult
	err     error
	lastReq GenerateRequest
}

func (f *fakeProvider) Generate(_ context.Context, req GenerateRequest) (*GenerateResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestService(t *testing.T) (*Service, *subscription.Service, *gorm.DB, *fakeProvider) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	billing := subscription.NewService(subscription.NewRepository(db), subscription.DefaultCatalog(), nil, subscription.Config{})
	provider := &fakeProvider{result: &GenerateResult{ImageURL: "https://cdn.test/image.png"}}
	return NewService(db, billing, provider), billing, db, provider
}

func createUserWithCredits(t *testing.T, db *gorm.DB, billing *subscription.Service) *models.User {
	t.Helper()

	user, err := models.CreateUser("Test User", "user@typix.test", "secret-password")
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, billing.GrantRegistrationCredits(context.Background(), user.ID))
	return user
}

func TestGenerateDebitsAndCompletes(t *testing.T) {
	svc, billing, db, provider := newTestService(t)
	user := createUserWithCredits(t, db, billing)

	generation, err := svc.Generate(context.Background(), user.ID, "test-model", "a red fox")
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, generation.Status)
	assert.Equal(t, "https://cdn.test/image.png", generation.ResultURL)
	assert.Equal(t, "a red fox", provider.lastReq.Prompt)
	assert.Equal(t, "test-model", provider.lastReq.ModelID)

	var credits models.UserCredits
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&credits).Error)
	assert.Equal(t, 29, credits.RemainingCredits)
	assert.Equal(t, 1, credits.UsedCredits)

	var entry models.UserCreditHistory
	require.NoError(t, db.Where("user_id = ? AND source = ?", user.ID, models.CreditSourceGeneration).First(&entry).Error)
	assert.Equal(t, -1, entry.ChangeAmount)
	require.NotNil(t, entry.GenerationID)
	assert.Equal(t, generation.ID, *entry.GenerationID)
}

func TestGenerateRefundsOnProviderFailure(t *testing.T) {
	svc, billing, db, provider := newTestService(t)
	user := createUserWithCredits(t, db, billing)
	provider.err = errors.New("model overloaded")

	_, err := svc.Generate(context.Background(), user.ID, "", "a red fox")
	require.Error(t, err)
	assert.Equal(t, subscription.KindInternal, subscription.KindOf(err))

	var generation models.UserGeneration
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&generation).Error)
	assert.Equal(t, models.GenerationStatusFailed, generation.Status)
	assert.Contains(t, generation.ErrorMessage, "model overloaded")

	var credits models.UserCredits
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&credits).Error)
	assert.Equal(t, 30, credits.RemainingCredits)
	assert.Equal(t, 0, credits.UsedCredits)

	var refund models.UserCreditHistory
	require.NoError(t, db.Where("user_id = ? AND source = ?", user.ID, models.CreditSourceRefund).First(&refund).Error)
	assert.Equal(t, 1, refund.ChangeAmount)
}

func TestGenerateRejectsWithoutCredits(t *testing.T) {
	svc, _, db, _ := newTestService(t)

	user, err := models.CreateUser("Broke User", "broke@typix.test", "secret-password")
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)

	_, err = svc.Generate(context.Background(), user.ID, "", "a red fox")
	require.Error(t, err)
	assert.Equal(t, subscription.KindInvalidParameter, subscription.KindOf(err))

	var generation models.UserGeneration
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&generation).Error)
	assert.Equal(t, models.GenerationStatusFailed, generation.Status)
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	svc, billing, db, _ := newTestService(t)
	user := createUserWithCredits(t, db, billing)

	_, err := svc.Generate(context.Background(), user.ID, "", "   ")
	require.Error(t, err)
	assert.Equal(t, subscription.KindInvalidParameter, subscription.KindOf(err))

	var count int64
	require.NoError(t, db.Model(&models.UserGeneration{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetGenerationScopedToUser(t *testing.T) {
	svc, billing, db, _ := newTestService(t)
	user := createUserWithCredits(t, db, billing)

	generation, err := svc.Generate(context.Background(), user.ID, "", "a red fox")
	require.NoError(t, err)

	got, err := svc.GetGeneration(context.Background(), user.ID, generation.ID)
	require.NoError(t, err)
	assert.Equal(t, generation.ID, got.ID)

	_, err = svc.GetGeneration(context.Background(), user.ID+1, generation.ID)
	require.Error(t, err)
	assert.Equal(t, subscription.KindInvalidParameter, subscription.KindOf(err))
}

func TestListGenerationsNewestFirst(t *testing.T) {
	svc, billing, db, _ := newTestService(t)
	user := createUserWithCredits(t, db, billing)

	first, err := svc.Generate(context.Background(), user.ID, "", "first")
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), user.ID, "", "second")
	require.NoError(t, err)

	generations, err := svc.ListGenerations(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, generations, 2)
	assert.Equal(t, second.ID, generations[0].ID)
	assert.Equal(t, first.ID, generations[1].ID)
}

package subscription

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/typix-ai/Typix/app/models"
)

// Repository provides the DB operations used by the subscription service.
type Repository interface {
	// Transaction runs fn against a repository bound to one DB transaction.
	Transaction(fn func(Repository) error) error

	GetUserByEmail(email string) (*models.User, error)

	CreateOrder(order *models.UserOrder) error
	ListOrdersByUser(userID uint) ([]models.UserOrder, error)

	FindRenewingSubscription(userID uint, tier string) (*models.UserSubscription, error)
	ListActiveSubscriptions(userID uint) ([]models.UserSubscription, error)
	CreateSubscription(sub *models.UserSubscription) error
	SaveSubscription(sub *models.UserSubscription) error

	GetOrCreateCredits(userID uint) (*models.UserCredits, error)
	SaveCredits(credits *models.UserCredits) error
	AppendCreditHistory(entry *models.UserCreditHistory) error
	ListCreditHistoryByUser(userID uint) ([]models.UserCreditHistory, error)

	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a subscription repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) CreateOrder(order *models.UserOrder) error {
	return r.db.Create(order).Error
}

func (r *gormRepository) ListOrdersByUser(userID uint) ([]models.UserOrder, error) {
	var orders []models.UserOrder
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, err
}

func (r *gormRepository) FindRenewingSubscription(userID uint, tier string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.
		Where("user_id = ? AND tier = ? AND auto_renew = ? AND status = ?", userID, tier, true, models.SubscriptionStatusActive).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListActiveSubscriptions(userID uint) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := r.db.Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreateSubscription(sub *models.UserSubscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.UserSubscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) GetOrCreateCredits(userID uint) (*models.UserCredits, error) {
	var credits models.UserCredits
	if err := r.db.Where("user_id = ?", userID).First(&credits).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			credits = models.UserCredits{UserID: userID}
			if err := r.db.Create(&credits).Error; err != nil {
				return nil, err
			}
			return &credits, nil
		}
		return nil, err
	}
	return &credits, nil
}

func (r *gormRepository) SaveCredits(credits *models.UserCredits) error {
	return r.db.Save(credits).Error
}

func (r *gormRepository) AppendCreditHistory(entry *models.UserCreditHistory) error {
	return r.db.Create(entry).Error
}

func (r *gormRepository) ListCreditHistoryByUser(userID uint) ([]models.UserCreditHistory, error) {
	var entries []models.UserCreditHistory
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&entries).Error
	return entries, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

package subscription

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/typix-ai/Typix/app/models"
	"github.com/typix-ai/Typix/internal/pkg/entitlements"
	"github.com/typix-ai/Typix/internal/pkg/env"
	"github.com/typix-ai/Typix/internal/pkg/mail"
)

const (
	ProviderCreem = "creem"

	// EventCheckoutCompleted is the only webhook event type the reconciler
	// acts on. Everything else is acknowledged and dropped.
	EventCheckoutCompleted = "checkout.completed"

	orderTypeRecurring = "recurring"
)

// Config carries the provider credentials and app settings the service needs.
type Config struct {
	CreemAPIKey        string
	CreemWebhookSecret string
	AppURL             string
}

func ConfigFromEnv() Config {
	return Config{
		CreemAPIKey:        strings.TrimSpace(env.GetEnv("CREEM_API_KEY", "")),
		CreemWebhookSecret: strings.TrimSpace(env.GetEnv("CREEM_WEBHOOK_SECRET", "")),
		AppURL:             strings.TrimSpace(env.GetEnv("APP_URL", "http://localhost:3000")),
	}
}

// Service owns subscriptions, orders and the credit ledger. All writes to a
// user's balance go through it so the history stays a faithful trace of every
// balance change.
type Service struct {
	repo     Repository
	catalog  *Catalog
	checkout CheckoutClient
	cfg      Config
	locks    userLocks
}

func NewService(repo Repository, catalog *Catalog, checkout CheckoutClient, cfg Config) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		checkout: checkout,
		cfg:      cfg,
	}
}

// NewServiceFromDB wires the service with the default catalog and the Creem
// client configured from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), DefaultCatalog(), NewCreemClientFromEnv(), ConfigFromEnv())
}

// Catalog exposes the product table, e.g. for a pricing endpoint.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// CreateCheckout starts a hosted checkout session for the given plan and
// returns the URL the user is redirected to. Fulfillment happens later via
// webhook; nothing is written here.
func (s *Service) CreateCheckout(ctx context.Context, userID uint, email, planID string) (string, error) {
	_ = userID

	if strings.TrimSpace(email) == "" {
		return "", newError(KindUnauthorized, "user email is required to create a checkout")
	}
	if _, ok := s.catalog.FindPlan(planID); !ok {
		return "", newError(KindInvalidParameter, "unknown plan id")
	}
	if s.cfg.CreemAPIKey == "" {
		return "", newError(KindInternal, "payment provider api key is not configured")
	}

	checkoutURL, err := s.checkout.CreateCheckout(ctx, CreateCheckoutRequest{
		ProductID:     planID,
		CustomerEmail: email,
		SuccessURL:    strings.TrimRight(s.cfg.AppURL, "/") + "/subscription/plan",
	})
	if err != nil {
		return "", wrapError(KindInternal, "checkout session creation failed", err)
	}
	return checkoutURL, nil
}

// HandleWebhook verifies and reconciles one webhook delivery: it records the
// paid order, creates or renews the entitlement window and applies the credit
// grant. Deliveries are deduplicated by provider event id, so provider
// retries of an already fulfilled checkout are acknowledged without granting
// twice.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	_ = ctx

	event, err := ParseCheckoutEvent(payload)
	if err != nil {
		return nil, wrapError(KindInvalidParameter, "malformed webhook payload", err)
	}
	if event.EventType != EventCheckoutCompleted {
		log.Printf("[Subscription] Ignoring webhook event type: %s", event.EventType)
		return &WebhookResult{Ignored: true}, nil
	}

	if s.cfg.CreemAPIKey == "" || s.cfg.CreemWebhookSecret == "" {
		return nil, newError(KindInternal, "payment provider credentials are not configured")
	}
	if !VerifyWebhookSignature(payload, signature, s.cfg.CreemWebhookSecret) {
		return nil, newError(KindInvalidParameter, "invalid webhook signature")
	}
	if event.CustomerEmail == "" || event.ProductID == "" {
		return nil, newError(KindInvalidParameter, "webhook payload is missing customer email or product id")
	}

	stored, created, err := s.recordWebhookEvent(event, payload)
	if err != nil {
		return nil, wrapError(KindInternal, "webhook event persistence failed", err)
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		log.Printf("[Subscription] Duplicate webhook delivery for event %s, skipping", stored.ProviderEventID)
		return &WebhookResult{Duplicate: true}, nil
	}

	user, err := s.repo.GetUserByEmail(event.CustomerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			perr := newError(KindInternal, "no user found for webhook customer email")
			_ = s.repo.MarkWebhookProcessed(stored.ID, perr.Message)
			return nil, perr
		}
		return nil, wrapError(KindInternal, "user lookup failed", err)
	}

	plan, ok := s.catalog.FindPlan(event.ProductID)
	if !ok {
		perr := newError(KindInvalidParameter, "webhook references an unknown product id")
		_ = s.repo.MarkWebhookProcessed(stored.ID, perr.Message)
		return nil, perr
	}

	unlock := s.locks.acquire(user.ID)
	defer unlock()

	var orderID uint
	err = s.repo.Transaction(func(tx Repository) error {
		var txErr error
		orderID, txErr = s.fulfillCheckout(tx, user.ID, plan, event)
		return txErr
	})
	if err != nil {
		_ = s.repo.MarkWebhookProcessed(stored.ID, err.Error())
		return nil, wrapError(KindInternal, "webhook reconciliation failed", err)
	}

	if err := s.repo.MarkWebhookProcessed(stored.ID, ""); err != nil {
		log.Printf("[Subscription] Failed to mark webhook event %d processed: %v", stored.ID, err)
	}
	log.Printf("[Subscription] Fulfilled checkout %s for user %d (plan %s)", event.CheckoutSessionID, user.ID, plan.ID)

	s.sendOrderConfirmation(user.Email, plan)
	return &WebhookResult{OrderID: orderID}, nil
}

// sendOrderConfirmation mails the buyer after fulfillment. Best effort and
// skipped entirely when SMTP is not configured.
func (s *Service) sendOrderConfirmation(email string, plan PlanInfo) {
	if !mail.IsConfigured() {
		return
	}
	subject := "Your Typix order"
	body := fmt.Sprintf(
		"<p>Thanks for your purchase!</p><p>Plan: %s (%s, billed per %s)<br>Credits added to your account: %d</p>",
		plan.Tier, plan.BillingType, plan.Interval, plan.Credits,
	)
	if err := mail.SendMail(email, subject, body); err != nil {
		log.Printf("[Subscription] Order confirmation mail to %s failed: %v", email, err)
	}
}

// recordWebhookEvent inserts the dedup row for a delivery. The checkout
// session id is the natural event key; deliveries without one fall back to
// the transaction id and finally to a payload hash.
func (s *Service) recordWebhookEvent(event *CheckoutEvent, payload []byte) (*models.PaymentWebhookEvent, bool, error) {
	eventID := event.CheckoutSessionID
	if eventID == "" {
		eventID = event.TransactionID
	}
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "payload:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.PaymentWebhookEvent{
		Provider:        ProviderCreem,
		ProviderEventID: eventID,
		EventType:       event.EventType,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// fulfillCheckout writes the order, the entitlement window and the credit
// grant for one verified checkout. Runs inside a transaction with the user's
// lock held.
func (s *Service) fulfillCheckout(tx Repository, userID uint, plan PlanInfo, event *CheckoutEvent) (uint, error) {
	now := time.Now()
	periodStart := now
	periodEnd := calcPeriodEnd(now, plan.Interval)
	if event.PeriodStart != nil {
		periodStart = *event.PeriodStart
	}
	if event.PeriodEnd != nil {
		periodEnd = *event.PeriodEnd
	}

	finalPrice := plan.Price
	if event.AmountPaid > 0 {
		// The provider reports the charge in minor units.
		finalPrice = event.AmountPaid / 100
	}
	currency := event.Currency
	if currency == "" {
		currency = "USD"
	}

	order := &models.UserOrder{
		UserID:            userID,
		PlanID:            plan.ID,
		Tier:              string(plan.Tier),
		BillingType:       plan.BillingType,
		BillingInterval:   plan.Interval,
		Status:            models.OrderStatusPaid,
		OriginalPrice:     plan.ListPrice,
		FinalPrice:        finalPrice,
		Currency:          currency,
		PaymentMethod:     ProviderCreem,
		TransactionID:     event.TransactionID,
		CheckoutSessionID: event.CheckoutSessionID,
		OrderDate:         now,
		PaidDate:          &now,
		CreditsAmount:     plan.Credits,
	}
	if err := tx.CreateOrder(order); err != nil {
		return 0, err
	}

	recurring := event.OrderType == orderTypeRecurring || plan.BillingType == models.BillingTypeSubscription
	if recurring {
		if err := s.applyRecurringPurchase(tx, userID, plan, order, periodStart, periodEnd); err != nil {
			return 0, err
		}
		return order.ID, nil
	}
	if err := s.applyOneTimePurchase(tx, userID, plan, order, periodStart, periodEnd); err != nil {
		return 0, err
	}
	return order.ID, nil
}

// applyRecurringPurchase renews the user's auto-renewing window for the tier
// in place, or opens a new one. The credit balance is reset to the plan grant;
// unused credits from the previous period do not carry over.
func (s *Service) applyRecurringPurchase(tx Repository, userID uint, plan PlanInfo, order *models.UserOrder, periodStart, periodEnd time.Time) error {
	nextBilling := periodEnd

	existing, err := tx.FindRenewingSubscription(userID, string(plan.Tier))
	switch {
	case err == nil:
		existing.OrderID = order.ID
		existing.BillingInterval = plan.Interval
		existing.CurrentPeriodStart = periodStart
		existing.CurrentPeriodEnd = periodEnd
		existing.NextBillingDate = &nextBilling
		if err := tx.SaveSubscription(existing); err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub := &models.UserSubscription{
			UserID:             userID,
			OrderID:            order.ID,
			Tier:               string(plan.Tier),
			BillingInterval:    plan.Interval,
			Status:             models.SubscriptionStatusActive,
			StartDate:          periodStart,
			NextBillingDate:    &nextBilling,
			CurrentPeriodStart: periodStart,
			CurrentPeriodEnd:   periodEnd,
			AutoRenew:          true,
		}
		if err := tx.CreateSubscription(sub); err != nil {
			return err
		}
	default:
		return err
	}

	return s.expireAndReplaceCredits(tx, userID, plan.Credits, order.ID)
}

// applyOneTimePurchase opens a fixed window that ends for good at periodEnd
// and adds the credit grant on top of whatever the user already holds.
func (s *Service) applyOneTimePurchase(tx Repository, userID uint, plan PlanInfo, order *models.UserOrder, periodStart, periodEnd time.Time) error {
	endDate := periodEnd
	sub := &models.UserSubscription{
		UserID:             userID,
		OrderID:            order.ID,
		Tier:               string(plan.Tier),
		BillingInterval:    plan.Interval,
		Status:             models.SubscriptionStatusActive,
		StartDate:          periodStart,
		EndDate:            &endDate,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		AutoRenew:          false,
	}
	if err := tx.CreateSubscription(sub); err != nil {
		return err
	}

	return s.incrementCredits(tx, userID, plan.Credits, models.CreditSourceOrder, &order.ID, &sub.ID, nil)
}

// GetUsage reports the user's balance and active entitlement window. Expired
// windows are rolled over first so a stale period can never be reported.
func (s *Service) GetUsage(ctx context.Context, userID uint) (*UsageReport, error) {
	_ = ctx

	if userID == 0 {
		return nil, newError(KindUnauthorized, "user id is required")
	}

	unlock := s.locks.acquire(userID)
	defer unlock()

	if err := s.rolloverIfNeeded(userID); err != nil {
		return nil, err
	}

	credits, err := s.repo.GetOrCreateCredits(userID)
	if err != nil {
		return nil, wrapError(KindInternal, "credit account lookup failed", err)
	}

	report := &UsageReport{
		TotalCredits:     credits.TotalCredits,
		UsedCredits:      credits.UsedCredits,
		RemainingCredits: credits.RemainingCredits,
	}

	subs, err := s.repo.ListActiveSubscriptions(userID)
	if err != nil {
		return nil, wrapError(KindInternal, "subscription lookup failed", err)
	}
	if best := pickHighestTier(subs); best != nil {
		autoRenew := best.AutoRenew
		periodStart := best.CurrentPeriodStart
		periodEnd := best.CurrentPeriodEnd
		report.Tier = best.Tier
		report.BillingInterval = best.BillingInterval
		report.AutoRenew = &autoRenew
		report.CurrentPeriodStart = &periodStart
		report.CurrentPeriodEnd = &periodEnd
	}
	return report, nil
}

// pickHighestTier selects the subscription whose tier grants the most.
func pickHighestTier(subs []models.UserSubscription) *models.UserSubscription {
	var best *models.UserSubscription
	bestRank := -1
	for i := range subs {
		rank := entitlements.TierRank(entitlements.NormalizeTier(subs[i].Tier))
		if rank > bestRank {
			best = &subs[i]
			bestRank = rank
		}
	}
	return best
}

// rolloverIfNeeded advances or closes entitlement windows whose current
// period has lapsed. Auto-renewing windows are left alone: their renewal is
// driven by the payment webhook, and advancing them here would grant credits
// the provider never charged for.
func (s *Service) rolloverIfNeeded(userID uint) error {
	err := s.repo.Transaction(func(tx Repository) error {
		subs, err := tx.ListActiveSubscriptions(userID)
		if err != nil {
			return err
		}

		now := time.Now()
		for i := range subs {
			sub := &subs[i]
			if !now.After(sub.CurrentPeriodEnd) {
				continue
			}
			if sub.AutoRenew {
				continue
			}

			if sub.EndDate != nil && now.After(*sub.EndDate) {
				sub.Status = models.SubscriptionStatusExpired
				if err := tx.SaveSubscription(sub); err != nil {
					return err
				}
				if err := s.expireCredits(tx, userID, sub.ID); err != nil {
					return err
				}
				continue
			}

			sub.CurrentPeriodStart = now
			sub.CurrentPeriodEnd = calcPeriodEnd(now, sub.BillingInterval)
			if err := tx.SaveSubscription(sub); err != nil {
				return err
			}
			if credits, ok := s.catalog.CreditsForTier(entitlements.NormalizeTier(sub.Tier)); ok {
				if err := s.incrementCredits(tx, userID, credits, models.CreditSourceOrder, nil, &sub.ID, nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return wrapError(KindInternal, "subscription rollover failed", err)
	}
	return nil
}

// GetUsageHistory returns the user's credit ledger entries, newest first.
func (s *Service) GetUsageHistory(ctx context.Context, userID uint) ([]models.UserCreditHistory, error) {
	_ = ctx
	if userID == 0 {
		return nil, newError(KindUnauthorized, "user id is required")
	}
	entries, err := s.repo.ListCreditHistoryByUser(userID)
	if err != nil {
		return nil, wrapError(KindInternal, "credit history lookup failed", err)
	}
	return entries, nil
}

// GetOrderHistory returns the user's orders, newest first.
func (s *Service) GetOrderHistory(ctx context.Context, userID uint) ([]models.UserOrder, error) {
	_ = ctx
	if userID == 0 {
		return nil, newError(KindUnauthorized, "user id is required")
	}
	orders, err := s.repo.ListOrdersByUser(userID)
	if err != nil {
		return nil, wrapError(KindInternal, "order history lookup failed", err)
	}
	return orders, nil
}

// GrantRegistrationCredits gives a new account its welcome credits.
func (s *Service) GrantRegistrationCredits(ctx context.Context, userID uint) error {
	_ = ctx
	if s.catalog.RegistrationCredits <= 0 {
		return nil
	}

	unlock := s.locks.acquire(userID)
	defer unlock()

	err := s.repo.Transaction(func(tx Repository) error {
		return s.incrementCredits(tx, userID, s.catalog.RegistrationCredits, models.CreditSourceRegistration, nil, nil, nil)
	})
	if err != nil {
		return wrapError(KindInternal, "registration credit grant failed", err)
	}
	return nil
}

// SpendCredits debits the user for a completed piece of work. Fails without
// writing anything when the balance does not cover the amount.
func (s *Service) SpendCredits(ctx context.Context, userID uint, amount int, generationID *uint) error {
	_ = ctx
	if amount <= 0 {
		return newError(KindInvalidParameter, "spend amount must be positive")
	}

	unlock := s.locks.acquire(userID)
	defer unlock()

	return s.repo.Transaction(func(tx Repository) error {
		credits, err := tx.GetOrCreateCredits(userID)
		if err != nil {
			return wrapError(KindInternal, "credit account lookup failed", err)
		}
		if credits.RemainingCredits < amount {
			return newError(KindInvalidParameter, "insufficient credits")
		}

		before := credits.RemainingCredits
		credits.UsedCredits += amount
		credits.RemainingCredits -= amount
		if err := tx.SaveCredits(credits); err != nil {
			return wrapError(KindInternal, "credit balance update failed", err)
		}
		return tx.AppendCreditHistory(&models.UserCreditHistory{
			UserID:        userID,
			Source:        models.CreditSourceGeneration,
			ChangeAmount:  -amount,
			BeforeCredits: before,
			AfterCredits:  credits.RemainingCredits,
			GenerationID:  generationID,
		})
	})
}

// RefundCredits returns a debit taken for work that subsequently failed.
func (s *Service) RefundCredits(ctx context.Context, userID uint, amount int, generationID *uint) error {
	_ = ctx
	if amount <= 0 {
		return newError(KindInvalidParameter, "refund amount must be positive")
	}

	unlock := s.locks.acquire(userID)
	defer unlock()

	err := s.repo.Transaction(func(tx Repository) error {
		credits, err := tx.GetOrCreateCredits(userID)
		if err != nil {
			return err
		}

		before := credits.RemainingCredits
		credits.RemainingCredits += amount
		if credits.UsedCredits >= amount {
			credits.UsedCredits -= amount
		} else {
			credits.UsedCredits = 0
		}
		if err := tx.SaveCredits(credits); err != nil {
			return err
		}
		return tx.AppendCreditHistory(&models.UserCreditHistory{
			UserID:        userID,
			Source:        models.CreditSourceRefund,
			ChangeAmount:  amount,
			BeforeCredits: before,
			AfterCredits:  credits.RemainingCredits,
			GenerationID:  generationID,
		})
	})
	if err != nil {
		return wrapError(KindInternal, "credit refund failed", err)
	}
	return nil
}

// incrementCredits adds a grant on top of the current balance and records the
// matching ledger entry.
func (s *Service) incrementCredits(tx Repository, userID uint, amount int, source string, orderID, subscriptionID, generationID *uint) error {
	credits, err := tx.GetOrCreateCredits(userID)
	if err != nil {
		return err
	}

	before := credits.RemainingCredits
	credits.TotalCredits += amount
	credits.RemainingCredits += amount
	bumpSourceAggregate(credits, source, amount)
	if err := tx.SaveCredits(credits); err != nil {
		return err
	}

	return tx.AppendCreditHistory(&models.UserCreditHistory{
		UserID:         userID,
		Source:         source,
		ChangeAmount:   amount,
		BeforeCredits:  before,
		AfterCredits:   credits.RemainingCredits,
		OrderID:        orderID,
		SubscriptionID: subscriptionID,
		GenerationID:   generationID,
	})
}

// expireAndReplaceCredits zeroes the old balance and sets the new period's
// grant, writing one ledger entry per step so the trace shows both the
// expiry and the grant.
func (s *Service) expireAndReplaceCredits(tx Repository, userID uint, amount int, orderID uint) error {
	credits, err := tx.GetOrCreateCredits(userID)
	if err != nil {
		return err
	}

	before := credits.RemainingCredits
	if before > 0 {
		if err := tx.AppendCreditHistory(&models.UserCreditHistory{
			UserID:        userID,
			Source:        models.CreditSourceOrder,
			ChangeAmount:  -before,
			BeforeCredits: before,
			AfterCredits:  0,
			OrderID:       &orderID,
		}); err != nil {
			return err
		}
	}

	credits.TotalCredits = amount
	credits.UsedCredits = 0
	credits.RemainingCredits = amount
	bumpSourceAggregate(credits, models.CreditSourceOrder, amount)
	if err := tx.SaveCredits(credits); err != nil {
		return err
	}

	return tx.AppendCreditHistory(&models.UserCreditHistory{
		UserID:        userID,
		Source:        models.CreditSourceOrder,
		ChangeAmount:  amount,
		BeforeCredits: 0,
		AfterCredits:  amount,
		OrderID:       &orderID,
	})
}

// expireCredits zeroes the balance of a window that ended for good.
func (s *Service) expireCredits(tx Repository, userID uint, subscriptionID uint) error {
	credits, err := tx.GetOrCreateCredits(userID)
	if err != nil {
		return err
	}

	before := credits.RemainingCredits
	credits.TotalCredits = 0
	credits.UsedCredits = 0
	credits.RemainingCredits = 0
	if err := tx.SaveCredits(credits); err != nil {
		return err
	}

	if before > 0 {
		return tx.AppendCreditHistory(&models.UserCreditHistory{
			UserID:         userID,
			Source:         models.CreditSourceOrder,
			ChangeAmount:   -before,
			BeforeCredits:  before,
			AfterCredits:   0,
			SubscriptionID: &subscriptionID,
		})
	}
	return nil
}

func bumpSourceAggregate(credits *models.UserCredits, source string, amount int) {
	if amount <= 0 {
		return
	}
	switch source {
	case models.CreditSourceRegistration:
		credits.RegistrationCredits += amount
	case models.CreditSourceOrder:
		credits.OrderCredits += amount
	case models.CreditSourceGift:
		credits.GiftCredits += amount
	case models.CreditSourcePromotion:
		credits.PromotionCredits += amount
	}
}

package subscription

import (
	"time"

	"github.com/typix-ai/Typix/app/models"
	"github.com/typix-ai/Typix/internal/pkg/entitlements"
)

// Plan is a purchasable billing option of a product tier. The plan ID is the
// payment provider's product id and the only key used to resolve a purchase
// to its terms.
type Plan struct {
	ID          string
	BillingType string
	Interval    string
	ListPrice   float64
	Price       float64
}

// Product bundles the plans of one tier with its per-period credit grant.
type Product struct {
	Tier        entitlements.Tier
	Description string
	Credits     int
	Plans       []Plan
}

// PlanInfo is a plan resolved together with its tier terms.
type PlanInfo struct {
	Plan
	Tier    entitlements.Tier
	Credits int
}

// Catalog holds the purchasable products. It is injected into the service so
// plan terms can be changed or audited without touching the billing logic.
type Catalog struct {
	Products            []Product
	RegistrationCredits int

	byID map[string]PlanInfo
}

// NewCatalog indexes the given products by plan ID.
func NewCatalog(products []Product, registrationCredits int) *Catalog {
	c := &Catalog{
		Products:            products,
		RegistrationCredits: registrationCredits,
		byID:                make(map[string]PlanInfo),
	}
	for _, p := range products {
		for _, pl := range p.Plans {
			c.byID[pl.ID] = PlanInfo{Plan: pl, Tier: p.Tier, Credits: p.Credits}
		}
	}
	return c
}

// FindPlan resolves a plan id against the catalog.
func (c *Catalog) FindPlan(id string) (PlanInfo, bool) {
	info, ok := c.byID[id]
	return info, ok
}

// CreditsForTier returns the per-period credit grant of a tier.
func (c *Catalog) CreditsForTier(tier entitlements.Tier) (int, bool) {
	for _, p := range c.Products {
		if p.Tier == tier {
			return p.Credits, true
		}
	}
	return 0, false
}

// DefaultCatalog returns the live product table: three tiers, each
// purchasable one-time or as a subscription, billed monthly, quarterly
// (-10%) or yearly (-20%).
func DefaultCatalog() *Catalog {
	products := []Product{
		{
			Tier:        entitlements.TierBasic,
			Description: "Basic tier with core features",
			Credits:     150,
			Plans: []Plan{
				{ID: "prod_3PrXnZHWeB8Ri37rOwdVMZ", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalMonth, ListPrice: 10, Price: 10},
				{ID: "basic_one_time_quarter", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalQuarter, ListPrice: 30, Price: 27},
				{ID: "basic_one_time_year", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalYear, ListPrice: 120, Price: 96},
				{ID: "prod_14WmWICabykLJ50OMzjDp9", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalMonth, ListPrice: 10, Price: 10},
				{ID: "basic_subscription_quarter", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalQuarter, ListPrice: 30, Price: 27},
				{ID: "basic_subscription_year", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalYear, ListPrice: 120, Price: 96},
			},
		},
		{
			Tier:        entitlements.TierAdvanced,
			Description: "Advanced tier with extended features",
			Credits:     500,
			Plans: []Plan{
				{ID: "advanced_one_time_month", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalMonth, ListPrice: 30, Price: 30},
				{ID: "advanced_one_time_quarter", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalQuarter, ListPrice: 90, Price: 81},
				{ID: "advanced_one_time_year", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalYear, ListPrice: 360, Price: 288},
				{ID: "advanced_subscription_month", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalMonth, ListPrice: 30, Price: 30},
				{ID: "advanced_subscription_quarter", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalQuarter, ListPrice: 90, Price: 81},
				{ID: "advanced_subscription_year", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalYear, ListPrice: 360, Price: 288},
			},
		},
		{
			Tier:        entitlements.TierProfessional,
			Description: "Professional tier with all features",
			Credits:     1500,
			Plans: []Plan{
				{ID: "professional_one_time_month", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalMonth, ListPrice: 80, Price: 80},
				{ID: "professional_one_time_quarter", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalQuarter, ListPrice: 240, Price: 216},
				{ID: "professional_one_time_year", BillingType: models.BillingTypeOneTime, Interval: models.BillingIntervalYear, ListPrice: 960, Price: 768},
				{ID: "professional_subscription_month", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalMonth, ListPrice: 80, Price: 80},
				{ID: "professional_subscription_quarter", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalQuarter, ListPrice: 240, Price: 216},
				{ID: "professional_subscription_year", BillingType: models.BillingTypeSubscription, Interval: models.BillingIntervalYear, ListPrice: 960, Price: 768},
			},
		},
	}
	return NewCatalog(products, 30)
}

// calcPeriodEnd advances a point in time by one billing interval using
// calendar arithmetic. Day overflow normalizes forward (Jan 31 + 1 month is
// Mar 2 in a leap year), matching the payment provider's own date handling.
func calcPeriodEnd(start time.Time, interval string) time.Time {
	switch interval {
	case models.BillingIntervalQuarter:
		return start.AddDate(0, 3, 0)
	case models.BillingIntervalYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

package model

import "github.com/shopspring/decimal"

// Module is a purchasable product area.
type Module struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPaid      bool   `json:"isPaid"`
}

type PlanDuration string

const (
	DurationMonthly   PlanDuration = "MONTHLY"
	DurationQuarterly PlanDuration = "QUARTERLY"
	DurationYearly    PlanDuration = "YEARLY"
)

// Label is the human name of the billing period.
func (d PlanDuration) Label() string {
	switch d {
	case DurationMonthly:
		return "Monthly"
	case DurationQuarterly:
		return "Quarterly"
	case DurationYearly:
		return "Yearly"
	default:
		return string(d)
	}
}

// Plan is a priced billing option of a module.
type Plan struct {
	ID              string          `json:"id"`
	ModuleID        string          `json:"moduleId"`
	Duration        PlanDuration    `json:"duration"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	EffectivePrice  decimal.Decimal `json:"effectivePrice"`
	QuotaLimit      int             `json:"quotaLimit"`
	ModuleName      string          `json:"moduleName"`
}

// Discounted reports whether the effective price is below the base price.
func (p Plan) Discounted() bool {
	return p.DiscountPercent.IsPositive() && p.EffectivePrice.LessThan(p.BasePrice)
}

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "PENDING"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

// Subscription is a user's plan enrolment.
type Subscription struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	ModuleID       string             `json:"moduleId"`
	PlanID         string             `json:"planId"`
	Status         SubscriptionStatus `json:"status"`
	StartDate      Timestamp          `json:"startDate"`
	EndDate        Timestamp          `json:"endDate"`
	AutoRenew      bool               `json:"autoRenew"`
	QuotaRemaining int                `json:"quotaRemaining"`
	ModuleName     string             `json:"moduleName"`
	PlanName       string             `json:"planName"`
}

// Cancellable reports whether the cancel action is offered; only active subscriptions can be cancelled.
func (s Subscription) Cancellable() bool {
	return s.Status == SubscriptionActive
}

type CreateSubscriptionRequest struct {
	ModuleIDRaw   string `json:"moduleIdRaw,omitempty"`
	PlanIDRaw     string `json:"planIdRaw"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

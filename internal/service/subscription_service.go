package service

import (
	"context"
	"errors"
	"strings"

	"myworld-planner/internal/api"
	"myworld-planner/internal/cache"
	"myworld-planner/internal/model"
)

// ErrNotCancellable is returned when a non-active subscription is asked to cancel.
var ErrNotCancellable = errors.New("only active subscriptions can be cancelled")

type SubscriptionService struct {
	client *api.SubscriptionClient
	cache  *cache.QueryCache
}

func NewSubscriptionService(client *api.SubscriptionClient, c *cache.QueryCache) *SubscriptionService {
	return &SubscriptionService{client: client, cache: c}
}

func (s *SubscriptionService) Modules(ctx context.Context) ([]model.Module, error) {
	return cache.Fetch(ctx, s.cache, cache.Key{"modules"}, s.client.Modules)
}

func (s *SubscriptionService) Plans(ctx context.Context, moduleID string) ([]model.Plan, error) {
	return cache.Fetch(ctx, s.cache, cache.Key{"modules", moduleID, "plans"}, func(ctx context.Context) ([]model.Plan, error) {
		return s.client.Plans(ctx, moduleID)
	})
}

// AllPlans lists the plans of every module.
func (s *SubscriptionService) AllPlans(ctx context.Context) ([]model.Plan, error) {
	modules, err := s.Modules(ctx)
	if err != nil {
		return nil, err
	}
	var plans []model.Plan
	for _, m := range modules {
		modulePlans, err := s.Plans(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range modulePlans {
			if p.ModuleName == "" {
				p.ModuleName = m.Name
			}
			if p.ModuleID == "" {
				p.ModuleID = m.ID
			}
			plans = append(plans, p)
		}
	}
	return plans, nil
}

func (s *SubscriptionService) List(ctx context.Context) ([]model.Subscription, error) {
	return cache.Fetch(ctx, s.cache, cache.Key{"subscriptions"}, s.client.List)
}

func (s *SubscriptionService) Get(ctx context.Context, id string) (model.Subscription, error) {
	return cache.Fetch(ctx, s.cache, cache.Key{"subscriptions", id}, func(ctx context.Context) (model.Subscription, error) {
		return s.client.Get(ctx, id)
	})
}

func (s *SubscriptionService) Subscribe(ctx context.Context, planID, moduleID, paymentMethod string) (model.Subscription, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return model.Subscription{}, errors.New("plan id is required")
	}

	sub, err := s.client.Create(ctx, model.CreateSubscriptionRequest{
		PlanIDRaw:     planID,
		ModuleIDRaw:   strings.TrimSpace(moduleID),
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return model.Subscription{}, err
	}

	s.cache.Invalidate("subscriptions")
	return sub, nil
}

// Cancel ends an active subscription.
func (s *SubscriptionService) Cancel(ctx context.Context, id string) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !sub.Cancellable() {
		return ErrNotCancellable
	}

	if err := s.client.Cancel(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate("subscriptions")
	return nil
}

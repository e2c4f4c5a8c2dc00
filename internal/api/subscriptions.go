package api

import (
	"context"
	"net/http"

	"myworld-planner/internal/model"
)

const (
	modulesPath       = "/api/v1/modules"
	subscriptionsPath = "/api/v1/subscriptions"
)

type SubscriptionClient struct {
	t Transport
}

func (c *SubscriptionClient) Modules(ctx context.Context) ([]model.Module, error) {
	var modules []model.Module
	err := call(ctx, c.t, http.MethodGet, modulesPath, nil, nil, &modules)
	return modules, err
}

func (c *SubscriptionClient) Plans(ctx context.Context, moduleID string) ([]model.Plan, error) {
	var plans []model.Plan
	err := call(ctx, c.t, http.MethodGet, path(modulesPath, moduleID, "plans"), nil, nil, &plans)
	return plans, err
}

func (c *SubscriptionClient) Create(ctx context.Context, req model.CreateSubscriptionRequest) (model.Subscription, error) {
	var sub model.Subscription
	err := call(ctx, c.t, http.MethodPost, subscriptionsPath, nil, req, &sub)
	return sub, err
}

func (c *SubscriptionClient) List(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := call(ctx, c.t, http.MethodGet, subscriptionsPath, nil, nil, &subs)
	return subs, err
}

func (c *SubscriptionClient) Get(ctx context.Context, id string) (model.Subscription, error) {
	var sub model.Subscription
	err := call(ctx, c.t, http.MethodGet, path(subscriptionsPath, id), nil, nil, &sub)
	return sub, err
}

func (c *SubscriptionClient) Cancel(ctx context.Context, id string) error {
	return call(ctx, c.t, http.MethodDelete, path(subscriptionsPath, id), nil, nil, nil)
}

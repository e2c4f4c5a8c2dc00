package service

import (
	"go.uber.org/zap"

	"myworld-planner/internal/api"
	"myworld-planner/internal/cache"
	"myworld-planner/internal/session"
)

// Suite groups the services of one chat around a shared cache and session.
type Suite struct {
	Tasks         *TaskService
	Subscriptions *SubscriptionService
	AI            *AIService
	Account       *AccountService

	Cache   *cache.QueryCache
	Session *session.Store
}

// NewSuite wires the services and purges the cache whenever the identity changes.
func NewSuite(client *api.Client, store *session.Store, c *cache.QueryCache, logger *zap.Logger) *Suite {
	store.Subscribe(func(ev session.Event) {
		switch ev.Type {
		case session.SignedIn, session.SignedOut, session.Expired:
			c.Purge()
		}
	})

	return &Suite{
		Tasks:         NewTaskService(client.Tasks, c),
		Subscriptions: NewSubscriptionService(client.Subscriptions, c),
		AI:            NewAIService(client.AI, c),
		Account:       NewAccountService(client.Auth, client.Users, store, c, logger),
		Cache:         c,
		Session:       store,
	}
}

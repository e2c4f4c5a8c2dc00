// Package api holds typed wrappers for the backend endpoint families.
package api

import (
	"context"
	"net/url"
	"strings"
	"time"

	"myworld-planner/internal/gateway"
)

// Transport is the part of the gateway the endpoint clients need.
type Transport interface {
	Do(ctx context.Context, req gateway.Request, out any) (*gateway.Response, error)
	AITimeout() time.Duration
}

// Client bundles the endpoint families over one transport.
type Client struct {
	Tasks         *TaskClient
	Auth          *AuthClient
	Subscriptions *SubscriptionClient
	AI            *AIClient
	Users         *UserClient
}

func New(t Transport) *Client {
	return &Client{
		Tasks:         &TaskClient{t: t},
		Auth:          &AuthClient{t: t},
		Subscriptions: &SubscriptionClient{t: t},
		AI:            &AIClient{t: t},
		Users:         &UserClient{t: t},
	}
}

// path joins escaped segments onto a fixed prefix.
func path(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func call(ctx context.Context, t Transport, method, p string, query url.Values, body, out any) error {
	_, err := t.Do(ctx, gateway.Request{Method: method, Path: p, Query: query, Body: body}, out)
	return err
}

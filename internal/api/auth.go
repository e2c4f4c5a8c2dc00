package api

import (
	"context"
	"net/http"

	"myworld-planner/internal/model"
)

type AuthClient struct {
	t Transport
}

func (c *AuthClient) Register(ctx context.Context, req model.RegisterRequest) (model.RegisterResponse, error) {
	var resp model.RegisterResponse
	err := call(ctx, c.t, http.MethodPost, "/auth/register", nil, req, &resp)
	return resp, err
}

func (c *AuthClient) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	var resp model.LoginResponse
	err := call(ctx, c.t, http.MethodPost, "/auth/login", nil, req, &resp)
	return resp, err
}

func (c *AuthClient) Logout(ctx context.Context) error {
	return call(ctx, c.t, http.MethodPost, "/auth/logout", nil, nil, nil)
}

func (c *AuthClient) Refresh(ctx context.Context) (model.RefreshResponse, error) {
	var resp model.RefreshResponse
	err := call(ctx, c.t, http.MethodPost, "/auth/refresh", nil, nil, &resp)
	return resp, err
}

func (c *AuthClient) Me(ctx context.Context) (model.UserProfile, error) {
	var profile model.UserProfile
	err := call(ctx, c.t, http.MethodGet, "/auth/me", nil, nil, &profile)
	return profile, err
}

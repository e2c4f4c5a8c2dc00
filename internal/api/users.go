package api

import (
	"context"
	"net/http"

	"myworld-planner/internal/model"
)

const (
	accountPath  = "/api/v1/auth"
	sessionsPath = "/api/v1/sessions"
)

// UserClient covers account maintenance and device sessions.
type UserClient struct {
	t Transport
}

func (c *UserClient) ChangePassword(ctx context.Context, req model.ChangePasswordRequest) (model.MessageResponse, error) {
	var resp model.MessageResponse
	err := call(ctx, c.t, http.MethodPost, accountPath+"/change-password", nil, req, &resp)
	return resp, err
}

func (c *UserClient) SendPhoneOTP(ctx context.Context, req model.SendPhoneOTPRequest) (model.MessageResponse, error) {
	var resp model.MessageResponse
	err := call(ctx, c.t, http.MethodPost, accountPath+"/otp/send", nil, req, &resp)
	return resp, err
}

func (c *UserClient) VerifyPhoneOTP(ctx context.Context, req model.VerifyPhoneOTPRequest) (model.VerificationResponse, error) {
	var resp model.VerificationResponse
	err := call(ctx, c.t, http.MethodPost, accountPath+"/otp/verify", nil, req, &resp)
	return resp, err
}

func (c *UserClient) VerifyEmailOTP(ctx context.Context, req model.VerifyEmailOTPRequest) (model.VerificationResponse, error) {
	var resp model.VerificationResponse
	err := call(ctx, c.t, http.MethodPost, accountPath+"/email/verify", nil, req, &resp)
	return resp, err
}

func (c *UserClient) Sessions(ctx context.Context) ([]model.DeviceSession, error) {
	var sessions []model.DeviceSession
	err := call(ctx, c.t, http.MethodGet, sessionsPath, nil, nil, &sessions)
	return sessions, err
}

func (c *UserClient) LogoutSession(ctx context.Context, id string) error {
	return call(ctx, c.t, http.MethodDelete, path(sessionsPath, id), nil, nil, nil)
}

func (c *UserClient) LogoutAllSessions(ctx context.Context) error {
	return call(ctx, c.t, http.MethodDelete, sessionsPath, nil, nil, nil)
}

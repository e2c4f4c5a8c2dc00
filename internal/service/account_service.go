package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"myworld-planner/internal/api"
	"myworld-planner/internal/cache"
	"myworld-planner/internal/forms"
	"myworld-planner/internal/model"
	"myworld-planner/internal/session"
)

var ErrNotSignedIn = errors.New("not signed in")

// AccountService drives authentication and profile maintenance for one chat session.
type AccountService struct {
	auth   *api.AuthClient
	users  *api.UserClient
	store  *session.Store
	cache  *cache.QueryCache
	logger *zap.Logger
}

func NewAccountService(auth *api.AuthClient, users *api.UserClient, store *session.Store, c *cache.QueryCache, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{auth: auth, users: users, store: store, cache: c, logger: logger}
}

func (s *AccountService) Register(ctx context.Context, form forms.RegisterForm) (model.RegisterResponse, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := forms.Validate(form); err != nil {
		return model.RegisterResponse{}, err
	}
	return s.auth.Register(ctx, model.RegisterRequest{Email: form.Email, Password: form.Password})
}

func (s *AccountService) Login(ctx context.Context, form forms.LoginForm) (model.User, error) {
	form.Email = strings.TrimSpace(form.Email)
	if err := forms.Validate(form); err != nil {
		return model.User{}, err
	}

	resp, err := s.auth.Login(ctx, model.LoginRequest{Email: form.Email, Password: form.Password})
	if err != nil {
		return model.User{}, err
	}
	if err := s.store.SignIn(ctx, resp.User, resp.AccessToken); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// Logout tells the server best-effort and always clears the local session.
func (s *AccountService) Logout(ctx context.Context) error {
	if s.store.IsAuthenticated() {
		if err := s.auth.Logout(ctx); err != nil {
			s.logger.Warn("server logout failed", zap.Error(err))
		}
	}
	return s.store.SignOut(ctx)
}

// Me reloads the profile and refreshes the stored identity.
func (s *AccountService) Me(ctx context.Context) (model.UserProfile, error) {
	profile, err := s.auth.Me(ctx)
	if err != nil {
		return model.UserProfile{}, err
	}
	if s.store.IsAuthenticated() {
		if err := s.store.UpdateUser(ctx, profile.User); err != nil {
			return profile, err
		}
	}
	return profile, nil
}

func (s *AccountService) Refresh(ctx context.Context) error {
	if !s.store.IsAuthenticated() {
		return ErrNotSignedIn
	}
	resp, err := s.auth.Refresh(ctx)
	if err != nil {
		return err
	}
	return s.store.UpdateToken(ctx, resp.AccessToken)
}

func (s *AccountService) ChangePassword(ctx context.Context, form forms.PasswordChangeForm) (string, error) {
	if err := forms.Validate(form); err != nil {
		return "", err
	}
	resp, err := s.users.ChangePassword(ctx, model.ChangePasswordRequest{
		OldPassword: form.OldPassword,
		NewPassword: form.NewPassword,
	})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (s *AccountService) SendPhoneOTP(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if err := forms.Validate(forms.PhoneForm{Phone: phone}); err != nil {
		return "", err
	}
	resp, err := s.users.SendPhoneOTP(ctx, model.SendPhoneOTPRequest{Phone: phone})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (s *AccountService) VerifyPhone(ctx context.Context, phone, code string) (string, error) {
	code = strings.TrimSpace(code)
	if err := forms.Validate(forms.OTPForm{Code: code}); err != nil {
		return "", err
	}
	resp, err := s.users.VerifyPhoneOTP(ctx, model.VerifyPhoneOTPRequest{Phone: phone, OTP: code})
	if err != nil {
		return "", err
	}
	return resp.Message, s.applyVerification(ctx, resp, func(u *model.User) { u.PhoneVerified = true })
}

func (s *AccountService) VerifyEmail(ctx context.Context, code string) (string, error) {
	user, ok := s.store.User()
	if !ok {
		return "", ErrNotSignedIn
	}
	code = strings.TrimSpace(code)
	if err := forms.Validate(forms.OTPForm{Code: code}); err != nil {
		return "", err
	}
	resp, err := s.users.VerifyEmailOTP(ctx, model.VerifyEmailOTPRequest{Email: user.Email, OTP: code})
	if err != nil {
		return "", err
	}
	return resp.Message, s.applyVerification(ctx, resp, func(u *model.User) { u.EmailVerified = true })
}

func (s *AccountService) applyVerification(ctx context.Context, resp model.VerificationResponse, mark func(*model.User)) error {
	if resp.AccessToken != "" {
		if err := s.store.UpdateToken(ctx, resp.AccessToken); err != nil {
			return err
		}
	}
	user, ok := s.store.User()
	if !ok {
		return nil
	}
	mark(&user)
	return s.store.UpdateUser(ctx, user)
}

func (s *AccountService) Sessions(ctx context.Context) ([]model.DeviceSession, error) {
	return cache.Fetch(ctx, s.cache, cache.Key{"sessions"}, s.users.Sessions)
}

func (s *AccountService) EndSession(ctx context.Context, id string) error {
	if err := s.users.LogoutSession(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate("sessions")
	return nil
}

// EndAllSessions logs out every device, this chat included.
func (s *AccountService) EndAllSessions(ctx context.Context) error {
	if err := s.users.LogoutAllSessions(ctx); err != nil {
		return err
	}
	return s.store.SignOut(ctx)
}

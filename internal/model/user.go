package model

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleDeveloper Role = "DEVELOPER"
	RoleClient    Role = "CLIENT"
)

// User is the authenticated identity returned by the auth endpoints.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	PhoneVerified bool   `json:"phoneVerified"`
}

// UserProfile is the extended account view.
type UserProfile struct {
	User
	Phone     string    `json:"phone,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type SendPhoneOTPRequest struct {
	Phone string `json:"phone"`
}

type VerifyPhoneOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type VerifyEmailOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// VerificationResponse is returned by OTP verification; a fresh token carries the new flags.
type VerificationResponse struct {
	Message     string `json:"message,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// DeviceSession is one logged-in device of the account.
type DeviceSession struct {
	SessionID      string    `json:"sessionId"`
	DeviceInfo     string    `json:"deviceInfo"`
	IPAddress      string    `json:"ipAddress"`
	LastAccessedAt Timestamp `json:"lastAccessedAt"`
	CreatedAt      Timestamp `json:"createdAt"`
}

// SessionRecord is the persisted client session: identity plus bearer token.
type SessionRecord struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

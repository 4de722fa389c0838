package dto

// LoginRequest represents the request payload for user login. The captcha
// fields are required for admin-tier roles only.
type LoginRequest struct {
	Identifier   string  `json:"identifier" validate:"required,min=3,max=255" example:"56125810021 or john.doe@example.com"`
	Password     string  `json:"password" validate:"required,min=8,max=100" example:"Test@17041990"`
	ChallengeID  string  `json:"challenge_id,omitempty" validate:"omitempty,max=64" example:"550e8400-e29b-41d4-a716-446655440000"`
	CaptchaAngle float64 `json:"captcha_angle,omitempty" validate:"omitempty,min=0,max=360" example:"137"`
}

// SessionDTO carries issued tokens
type SessionDTO struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"86400"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	User    UserDTO    `json:"user"`
	Session SessionDTO `json:"session"`
}

// RefreshRequest asks for a new session from a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,min=10" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// CaptchaInitResponse returns a rotate captcha challenge for admin-tier login
type CaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	MasterImageBase64 string `json:"master_image_base64" example:"data:image/png;base64,iVBORw0..."`
	ThumbImageBase64  string `json:"thumb_image_base64" example:"data:image/png;base64,iVBORw0..."`
}

// Common error codes for login operations
const (
	ErrorCodeIncorrectPassword = "INCORRECT_PASSWORD"
	ErrorCodeUserSuspended     = "USER_SUSPENDED"
	ErrorCodeUserPending       = "USER_PENDING_REVIEW"
	ErrorCodeUserInactive      = "USER_INACTIVE"
	ErrorCodeCaptchaRequired   = "CAPTCHA_REQUIRED"
	ErrorCodeCaptchaInvalid    = "CAPTCHA_INVALID"
)

package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledgerdesk/ledgerdesk/app/dto"
	"github.com/ledgerdesk/ledgerdesk/app/services"
	"github.com/ledgerdesk/ledgerdesk/models"
	"github.com/ledgerdesk/ledgerdesk/repository"
	"github.com/ledgerdesk/ledgerdesk/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginFlow handles user authentication and session issuance
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error)
	RefreshSession(ctx context.Context, refreshToken string) (*dto.SessionDTO, error)
	Logout(ctx context.Context, accessToken string) error
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo        repository.UserRepository
	loginEventRepo  repository.LoginEventRepository
	tokenService    services.TokenService
	captchaSvc      services.CaptchaService
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	loginEventRepo repository.LoginEventRepository,
	tokenService services.TokenService,
	captchaSvc services.CaptchaService,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:        userRepo,
		loginEventRepo:  loginEventRepo,
		tokenService:    tokenService,
		captchaSvc:      captchaSvc,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

func (lf *LoginFlowImpl) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if lf.db == nil {
		return fn(ctx)
	}
	return repository.WithTransaction(ctx, lf.db, fn)
}

// InitCaptcha creates a rotate captcha challenge for admin-tier logins
func (lf *LoginFlowImpl) InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error) {
	if lf.captchaSvc == nil {
		return nil, NewBusinessError("CAPTCHA_NOT_AVAILABLE", "Captcha service not available", ErrCaptchaRequired)
	}
	ch, err := lf.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to initialize captcha", err)
	}
	return &dto.CaptchaInitResponse{
		ChallengeID:       ch.ID,
		MasterImageBase64: ch.MasterImageBase64,
		ThumbImageBase64:  ch.ThumbImageBase64,
	}, nil
}

// Login authenticates a user by identifier (user ID or email) and password.
// The stored status flag gates access; derived activity from the reconciler
// plays no part here. Admin-tier roles must additionally solve a captcha.
// Every successful login appends a login event, which feeds the activity and
// monthly reports.
func (lf *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	user, err := lf.findUserByIdentifier(ctx, request.Identifier)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	switch user.StatusCode {
	case models.StatusCodeSuspended:
		return nil, NewBusinessError("USER_SUSPENDED", "User is suspended", ErrUserSuspended)
	case models.StatusCodePending:
		return nil, NewBusinessError("USER_PENDING_REVIEW", "User is pending review", ErrUserPendingReview)
	case models.StatusCodeInactive:
		return nil, NewBusinessError("USER_INACTIVE", "User is inactive", ErrUserInactive)
	}

	if user.IsAdminTier() && lf.captchaSvc != nil {
		if request.ChallengeID == "" {
			return nil, NewBusinessError("CAPTCHA_REQUIRED", "Captcha challenge missing", ErrCaptchaRequired)
		}
		if !lf.captchaSvc.VerifyRotate(ctx, request.ChallengeID, request.CaptchaAngle) {
			return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha validation failed", ErrCaptchaInvalid)
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		return nil, NewBusinessError("INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	now := utils.UTCNow()
	err = lf.withTx(ctx, func(ctx context.Context) error {
		if err := lf.loginEventRepo.Save(ctx, models.NewLoginEvent(user.UserID, now)); err != nil {
			return err
		}
		return lf.userRepo.UpdateLastLogin(ctx, user.UserID, now)
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to record login", err)
	}
	user.LastLoginAt = &now

	accessToken, refreshToken, err := lf.tokenService.GenerateTokens(user.UserID, user.RoleCode)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if user.IsAdminTier() {
		go lf.notifyAdminSignIn(*user, metadata)
	}

	return &dto.LoginResponse{
		User:    ToUserDTO(*user),
		Session: ToSessionDTO(accessToken, refreshToken),
	}, nil
}

// RefreshSession exchanges a valid refresh token for a new token pair
func (lf *LoginFlowImpl) RefreshSession(ctx context.Context, refreshToken string) (*dto.SessionDTO, error) {
	accessToken, newRefreshToken, err := lf.tokenService.RefreshToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Failed to refresh session", err)
	}
	return utils.ToPtr(ToSessionDTO(accessToken, newRefreshToken)), nil
}

// Logout revokes the presented access token
func (lf *LoginFlowImpl) Logout(ctx context.Context, accessToken string) error {
	if err := lf.tokenService.RevokeToken(accessToken); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Failed to revoke token", err)
	}
	return nil
}

// findUserByIdentifier resolves an identifier to a user: values containing
// "@" are treated as emails, everything else as a user ID.
func (lf *LoginFlowImpl) findUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return lf.userRepo.ByEmail(ctx, identifier)
	}
	return lf.userRepo.ByUserID(ctx, identifier)
}

func (lf *LoginFlowImpl) notifyAdminSignIn(user models.User, metadata *ClientMetadata) {
	if lf.notificationSvc == nil {
		return
	}

	ipAddress := "unknown"
	if metadata != nil && metadata.IPAddress != "" {
		ipAddress = metadata.IPAddress
	}

	subject := "New sign-in to your account"
	message := fmt.Sprintf("Hello %s,\n\nA new sign-in to your %s account was recorded at %s from %s.\nIf this was not you, contact the platform team immediately.", user.FullName(), user.RoleName(), utils.UTCNowFormat("2006-01-02 15:04:05 MST"), ipAddress)
	if err := lf.notificationSvc.SendEmail(user.Email, subject, message); err != nil {
		log.Printf("Failed to send sign-in alert to user %s: %v", utils.MaskUserID(user.UserID), err)
	}
}

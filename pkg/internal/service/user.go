package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/teamvault/pkg/auth"
	"github.com/yeisme/teamvault/pkg/configs"
	"github.com/yeisme/teamvault/pkg/internal/errs"
	"github.com/yeisme/teamvault/pkg/internal/model"
	"github.com/yeisme/teamvault/pkg/internal/storage/db"
	"github.com/yeisme/teamvault/pkg/internal/types"
	nlog "github.com/yeisme/teamvault/pkg/log"
	"github.com/yeisme/teamvault/pkg/mailer"
	"github.com/yeisme/teamvault/pkg/plan"
	"github.com/yeisme/teamvault/pkg/rule"
)

var (
	errBadCredentials = errs.Unauthenticated("Invalid email or password")
	errBadToken       = errs.Invalid("Invalid or expired token")
	errEmailTaken     = errs.Invalid("An account with this email already exists")
)

// UserService 注册、登录、邮箱验证与密码重置.
type UserService struct {
	*Deps
}

func NewUserService(c context.Context) *UserService {
	return &UserService{Deps: mustDeps(c)}
}

// loadUser 令牌对应的用户不存在时视为未认证.
func loadUser(tx *gorm.DB, userID string) (*model.User, error) {
	var u model.User

	err := tx.Where("id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Unauthenticated("Unauthorized")
	}

	if err != nil {
		return nil, errs.Internal(err)
	}

	return &u, nil
}

func planOf(u *model.User) plan.Plan {
	return plan.Parse(u.Plan)
}

// UserInfo 转换为响应结构.
func UserInfo(u *model.User) types.UserInfo {
	return types.UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Image:         u.Image,
		EmailVerified: u.EmailVerified,
		Plan:          string(planOf(u)),
		CreatedAt:     u.CreatedAt,
	}
}

func (s *UserService) hasher() *auth.Hasher {
	if s.Hasher != nil {
		return s.Hasher
	}

	return auth.NewHasher(auth.DefaultParams)
}

func (s *UserService) checkPassword(pw string) error {
	minLen := s.Config.Auth.PasswordMinLength
	if minLen <= 0 {
		minLen = configs.DefaultPasswordMinLength
	}

	if len(pw) < minLen {
		return errs.Invalid(fmt.Sprintf("Password must be at least %d characters", minLen))
	}

	return nil
}

func (s *UserService) issue(u *model.User) (string, time.Time, error) {
	if s.Tokens == nil {
		return "", time.Time{}, errs.Internal(errors.New("token manager not configured"))
	}

	tok, exp, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return "", time.Time{}, errs.Internal(err)
	}

	return tok, exp, nil
}

// Register 创建用户与默认工作区，发送验证邮件并签发登录令牌.
func (s *UserService) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.Invalid("Name is required")
	}

	if err := s.checkPassword(req.Password); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if err := rule.ValidateVar(email, "required,email,max=320"); err != nil {
		return nil, errs.Invalid("A valid email address is required")
	}

	var n int64
	if err := s.db(ctx).Model(&model.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, errs.Internal(err)
	}

	if n > 0 {
		return nil, errEmailTaken
	}

	hash, err := s.hasher().Hash(req.Password)
	if err != nil {
		return nil, errs.Internal(err)
	}

	u := &model.User{Email: email, Name: name, Plan: string(plan.Free), PasswordHash: hash}

	var ws *model.Workspace

	// 用户、默认工作区与偏好同一事务提交，不会留下没有工作区的账号
	err = s.inTx(ctx, func(tx *txScope) error {
		if err := tx.tx.Create(u).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return errEmailTaken
			}

			return err
		}

		ws, err = createDefault(tx, u.ID)

		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}

	s.sendVerification(ctx, u)

	tok, exp, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	return &types.AuthResponse{Token: tok, ExpiresAt: exp, User: UserInfo(u), WorkspaceID: ws.ID}, nil
}

// Login 邮箱或密码错误返回同一信息.
func (s *UserService) Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error) {
	var u model.User

	err := s.db(ctx).Where("email = ?", normalizeEmail(req.Email)).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errBadCredentials
	}

	if err != nil {
		return nil, errs.Internal(err)
	}

	ok, err := s.hasher().Verify(u.PasswordHash, req.Password)
	if err != nil {
		nlog.Ctx(ctx).Warn().Err(err).Str("user", u.ID).Msg("verify password")
	}

	if !ok {
		return nil, errBadCredentials
	}

	tok, exp, err := s.issue(&u)
	if err != nil {
		return nil, err
	}

	return &types.AuthResponse{Token: tok, ExpiresAt: exp, User: UserInfo(&u)}, nil
}

// Me 当前用户与最近访问的工作区.
func (s *UserService) Me(ctx context.Context, userID string) (*types.MeResponse, error) {
	u, err := loadUser(s.db(ctx), userID)
	if err != nil {
		return nil, err
	}

	last, err := (&WorkspaceService{Deps: s.Deps}).LastActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &types.MeResponse{User: UserInfo(u), LastWorkspaceID: last}, nil
}

func (s *UserService) newToken(ctx context.Context, userID string, purpose model.TokenPurpose, ttl time.Duration) (string, error) {
	raw, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", err
	}

	t := &model.VerificationToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hash,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.db(ctx).Create(t).Error; err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}

	return raw, nil
}

func (s *UserService) link(path, token string) string {
	return strings.TrimRight(s.Config.App.BaseURL, "/") + path + "?token=" + token
}

func ttlOr(ttl, def time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}

	return def
}

func (s *UserService) sendVerification(ctx context.Context, u *model.User) {
	raw, err := s.newToken(ctx, u.ID, model.PurposeVerifyEmail, ttlOr(s.Config.Auth.VerifyTokenTTL, configs.DefaultVerifyTokenTTL))
	if err != nil {
		nlog.Ctx(ctx).Error().Err(err).Str("user", u.ID).Msg("create verification token")

		return
	}

	subject, body, err := mailer.RenderVerifyEmail(mailer.VerifyEmailData{
		AppName: s.Config.App.Name,
		Name:    u.Name,
		URL:     s.link("/verify-email", raw),
	})
	if err != nil {
		nlog.Ctx(ctx).Error().Err(err).Msg("render verification email")

		return
	}

	mailer.SendAsync(ctx, s.Mailer, u.Email, subject, body)
}

// consumeToken 校验一次性令牌并在事务中标记已使用.
func (s *UserService) consumeToken(ctx context.Context, raw string, purpose model.TokenPurpose, apply func(tx *gorm.DB, userID string) error) error {
	if raw == "" {
		return errBadToken
	}

	var t model.VerificationToken

	err := s.db(ctx).Where("token_hash = ? AND purpose = ?", auth.HashToken(raw), purpose).Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errBadToken
	}

	if err != nil {
		return errs.Internal(err)
	}

	now := s.now()
	if t.UsedAt != nil || now.After(t.ExpiresAt) {
		return errBadToken
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.VerificationToken{}).
			Where("id = ? AND used_at IS NULL", t.ID).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return errBadToken
		}

		return apply(tx, t.UserID)
	})

	return errs.Internal(err)
}

// VerifyEmail 标记邮箱已验证.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	return s.consumeToken(ctx, token, model.PurposeVerifyEmail, func(tx *gorm.DB, userID string) error {
		return tx.Model(&model.User{}).Where("id = ?", userID).Update("email_verified", true).Error
	})
}

// ForgotPassword 不暴露邮箱是否注册，总是成功.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	var u model.User

	err := s.db(ctx).Where("email = ?", normalizeEmail(email)).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}

	if err != nil {
		return errs.Internal(err)
	}

	ttl := ttlOr(s.Config.Auth.ResetTokenTTL, configs.DefaultResetTokenTTL)

	raw, err := s.newToken(ctx, u.ID, model.PurposeResetPassword, ttl)
	if err != nil {
		return errs.Internal(err)
	}

	subject, body, err := mailer.RenderResetPassword(mailer.ResetPasswordData{
		AppName:   s.Config.App.Name,
		Name:      u.Name,
		URL:       s.link("/reset-password", raw),
		ExpiresIn: ttl.String(),
	})
	if err != nil {
		return errs.Internal(err)
	}

	mailer.SendAsync(ctx, s.Mailer, u.Email, subject, body)

	return nil
}

// ResetPassword 更新密码并作废该用户其余的重置令牌.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	if err := s.checkPassword(password); err != nil {
		return err
	}

	hash, err := s.hasher().Hash(password)
	if err != nil {
		return errs.Internal(err)
	}

	now := s.now()

	return s.consumeToken(ctx, token, model.PurposeResetPassword, func(tx *gorm.DB, userID string) error {
		if err := tx.Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash).Error; err != nil {
			return err
		}

		return tx.Model(&model.VerificationToken{}).
			Where("user_id = ? AND purpose = ? AND used_at IS NULL", userID, model.PurposeResetPassword).
			Update("used_at", now).Error
	})
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/apperror"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/middleware"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/model"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/internal/repository"
	"github.com/CodingEnthusiastic/oodo-hacks-sub000/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	tokenTTL      = 24 * time.Hour
	resetCodeTTL  = 10 * time.Minute
	resetCodeBase = 1000000 // codes are zero-padded six digits
)

// Mailer delivers the OTP reset code. The default implementation only logs,
// which is enough for local setups without an SMTP relay.
type Mailer interface {
	SendResetCode(ctx context.Context, email, code string) error
}

type logMailer struct {
	log *logger.Logger
}

// NewLogMailer returns a Mailer that writes the code to the application log.
func NewLogMailer(log *logger.Logger) Mailer {
	return &logMailer{log: log}
}

func (m *logMailer) SendResetCode(_ context.Context, email, code string) error {
	m.log.Info().Str("email", email).Str("code", code).Msg("password reset code issued")
	return nil
}

// DTOs
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=admin manager staff"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Get(ctx context.Context, id string) (UserResponse, error)
	List(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	Delete(ctx context.Context, id string) error
}

type userService struct {
	userRepo  repository.UserRepository
	resetRepo repository.PasswordResetRepository
	txManager repository.TransactionManager
	mailer    Mailer
	log       *logger.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	txManager repository.TransactionManager,
	mailer Mailer,
	log *logger.Logger,
) UserService {
	return &userService{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		txManager: txManager,
		mailer:    mailer,
		log:       log,
	}
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (UserResponse, error) {
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return UserResponse{}, apperror.NewConflict("email %q is already registered", req.Email)
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return UserResponse{}, apperror.NewConflict("username %q is already taken", req.Username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, apperror.NewInternal("failed to hash password", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleStaff
	}
	user := model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		return UserResponse{}, apperror.NewInternal("failed to create user", err)
	}
	return toUserResponse(&user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LoginResponse{}, apperror.NewValidation("invalid email or password")
		}
		return LoginResponse{}, apperror.NewInternal("failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return LoginResponse{}, apperror.NewValidation("invalid email or password")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return LoginResponse{}, apperror.NewInternal("failed to sign token", err)
	}
	return LoginResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *userService) issueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(middleware.GetJWTSecret())
}

// ForgotPassword issues a fresh six-digit code and invalidates outstanding
// ones. The response never reveals whether the email exists.
func (s *userService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info().Str("email", req.Email).Msg("password reset requested for unknown email")
			return nil
		}
		return apperror.NewInternal("failed to load user", err)
	}

	code, err := generateResetCode()
	if err != nil {
		return apperror.NewInternal("failed to generate reset code", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return apperror.NewInternal("failed to hash reset code", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if invErr := s.resetRepo.InvalidateForUser(txCtx, user.ID); invErr != nil {
			return apperror.NewInternal("failed to invalidate previous codes", invErr)
		}
		reset := model.PasswordReset{
			UserID:    user.ID,
			CodeHash:  string(hashed),
			ExpiresAt: time.Now().Add(resetCodeTTL),
		}
		if createErr := s.resetRepo.Create(txCtx, &reset); createErr != nil {
			return apperror.NewInternal("failed to store reset code", createErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if sendErr := s.mailer.SendResetCode(ctx, user.Email, code); sendErr != nil {
		s.log.Error().Err(sendErr).Str("email", user.Email).Msg("failed to send reset code")
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewValidation("invalid or expired reset code")
		}
		return apperror.NewInternal("failed to load user", err)
	}

	reset, err := s.resetRepo.FindActiveByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewValidation("invalid or expired reset code")
		}
		return apperror.NewInternal("failed to load reset code", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(reset.CodeHash), []byte(req.Code)); err != nil {
		return apperror.NewValidation("invalid or expired reset code")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.NewInternal("failed to hash password", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user.Password = string(hashed)
		if updateErr := s.userRepo.Update(txCtx, user); updateErr != nil {
			return apperror.NewInternal("failed to update password", updateErr)
		}
		if usedErr := s.resetRepo.MarkUsed(txCtx, reset.ID); usedErr != nil {
			return apperror.NewInternal("failed to consume reset code", usedErr)
		}
		return nil
	})
}

func (s *userService) Get(ctx context.Context, id string) (UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, apperror.NewNotFound("user", id)
		}
		return UserResponse{}, apperror.NewInternal("failed to load user", err)
	}
	return toUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.NewInternal("failed to list users", err)
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, toUserResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("user", id)
		}
		return apperror.NewInternal("failed to load user", err)
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return apperror.NewInternal("failed to delete user", err)
	}
	return nil
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(resetCodeBase))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

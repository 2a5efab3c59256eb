package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const tokenTTL = 24 * time.Hour

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthUsecase struct {
	users     interfaces.UserStore
	jwtSecret []byte
	log       *zap.Logger
}

func NewAuthUsecase(users interfaces.UserStore, secret string, log *zap.Logger) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		jwtSecret: []byte(secret),
		log:       log.Named("auth"),
	}
}

// Register creates a dashboard user with a bcrypt password hash.
func (uc *AuthUsecase) Register(ctx context.Context, username, password, role string) (*entities.User, error) {
	if len(username) < 3 || len(password) < 4 {
		return nil, invalidf("username needs 3+ characters and password 4+")
	}
	if role == "" {
		role = entities.RoleOperator
	}
	if role != entities.RoleAdmin && role != entities.RoleOperator {
		return nil, invalidf("unknown role %q", role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: username already exists", entities.ErrDuplicate)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.users.GetByUsername(ctx, username)
	if errors.Is(err, entities.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// EnsureAdmin creates the bootstrap admin if it does not exist (called on startup).
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := uc.users.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return err
	}
	if _, err := uc.Register(ctx, username, password, entities.RoleAdmin); err != nil && !isDuplicate(err) {
		return err
	}
	uc.log.Info("admin user created", zap.String("username", username))
	return nil
}

func (uc *AuthUsecase) ListUsers(ctx context.Context) ([]entities.User, error) {
	return uc.users.List(ctx)
}

func (uc *AuthUsecase) DeleteUser(ctx context.Context, id string) error {
	return uc.users.Delete(ctx, id)
}

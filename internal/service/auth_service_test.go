package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	findErr          error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.Username != username {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newAuthService(t *testing.T, repo *mockAuthRepo) *AuthService {
	t.Helper()
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "pe-space-master",
	})
}

func teacherUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pe2025"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "u1", Username: "teacher", PasswordHash: string(hash), Role: models.RoleTeacher, Active: true}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{user: teacherUser(t)}
	svc := newAuthService(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "teacher", Password: "pe2025"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, resp.SessionID, claims.SessionID)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	inactive := teacherUser(t)
	inactive.Active = false

	cases := []struct {
		name string
		repo *mockAuthRepo
		req  models.LoginRequest
		code string
	}{
		{"missing fields", &mockAuthRepo{}, models.LoginRequest{Username: "teacher"}, appErrors.ErrValidation.Code},
		{"unknown user", &mockAuthRepo{user: teacherUser(t)}, models.LoginRequest{Username: "ghost", Password: "x"}, appErrors.ErrInvalidCredentials.Code},
		{"wrong password", &mockAuthRepo{user: teacherUser(t)}, models.LoginRequest{Username: "teacher", Password: "nope"}, appErrors.ErrInvalidCredentials.Code},
		{"inactive", &mockAuthRepo{user: inactive}, models.LoginRequest{Username: "teacher", Password: "pe2025"}, appErrors.ErrInactiveAccount.Code},
		{"repository error", &mockAuthRepo{findErr: errors.New("db down")}, models.LoginRequest{Username: "teacher", Password: "pe2025"}, appErrors.ErrInternal.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newAuthService(t, tc.repo).Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestAuthServiceValidateTokenRejectsForeignSignature(t *testing.T) {
	repo := &mockAuthRepo{user: teacherUser(t)}
	resp, err := newAuthService(t, repo).Login(context.Background(), models.LoginRequest{Username: "teacher", Password: "pe2025"})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "different"})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

package service

import (
	"context"
	"testing"

	"github.com/mavazi-pos/internal/config"
	"github.com/mavazi-pos/internal/constants"
	"github.com/mavazi-pos/internal/repository"

	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T, adminEmails ...string) (*AuthService, repository.StaffRepository) {
	t.Helper()
	db := openServiceTestDB(t)
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "auth-test-secret-0123456789abcdef"
	cfg.JWT.ExpireHours = 1
	cfg.Auth.AdminEmails = adminEmails
	repo := repository.NewStaffRepository(db)
	return NewAuthService(cfg, repo), repo
}

func TestAuthLoginIssuesParsableToken(t *testing.T) {
	svc, _ := newAuthFixture(t)
	created, err := svc.CreateStaff(CreateStaffInput{Username: "wanjiru", Password: "secret1", Role: "manager"})
	require.NoError(t, err)
	require.Equal(t, constants.RoleCashier, created.Role)

	staff, token, _, err := svc.Login("wanjiru", "secret1")
	require.NoError(t, err)
	require.NotNil(t, staff.LastLoginAt)

	claims, err := svc.ParseJWT(token)
	require.NoError(t, err)
	require.Equal(t, created.ID, claims.StaffID)
	require.Equal(t, constants.RoleCashier, claims.Role)

	_, _, _, err = svc.Login("wanjiru", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, _, err = svc.Login("ghost", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthLoginPromotesAdminEmail(t *testing.T) {
	svc, repo := newAuthFixture(t, " Owner@Shop.test ")
	created, err := svc.CreateStaff(CreateStaffInput{Username: "otieno", Email: "owner@shop.TEST", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, constants.RoleCashier, created.Role)

	staff, _, _, err := svc.Login("otieno", "secret1")
	require.NoError(t, err)
	require.Equal(t, constants.RoleAdmin, staff.Role)

	stored, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.Equal(t, constants.RoleAdmin, stored.Role)
}

func TestAuthCreateStaffRejectsDuplicates(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.CreateStaff(CreateStaffInput{Username: "akinyi", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.CreateStaff(CreateStaffInput{Username: "akinyi", Password: "secret2"})
	require.ErrorIs(t, err, ErrStaffExists)
	_, err = svc.CreateStaff(CreateStaffInput{Username: "short", Password: "123"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthResolveStaffStateWithoutCache(t *testing.T) {
	svc, _ := newAuthFixture(t)
	created, err := svc.CreateStaff(CreateStaffInput{Username: "mutua", Password: "secret1"})
	require.NoError(t, err)

	state, err := svc.ResolveStaffState(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, state.IsActive)

	_, err = svc.ResolveStaffState(context.Background(), created.ID+100)
	require.ErrorIs(t, err, ErrStaffNotFound)
}

func TestAuthSetStaffActiveRevokesTokens(t *testing.T) {
	svc, repo := newAuthFixture(t)
	created, err := svc.CreateStaff(CreateStaffInput{Username: "njeri", Password: "secret1"})
	require.NoError(t, err)

	staff, err := svc.SetStaffActive(context.Background(), created.ID, false)
	require.NoError(t, err)
	require.False(t, staff.IsActive)
	require.Equal(t, created.TokenVersion+1, staff.TokenVersion)

	_, _, _, err = svc.Login("njeri", "secret1")
	require.ErrorIs(t, err, ErrStaffDisabled)

	_, err = svc.SetStaffActive(context.Background(), created.ID+50, true)
	require.ErrorIs(t, err, ErrStaffNotFound)

	_, err = svc.SetStaffActive(context.Background(), created.ID, true)
	require.NoError(t, err)
	stored, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.Equal(t, created.TokenVersion+2, stored.TokenVersion)
}

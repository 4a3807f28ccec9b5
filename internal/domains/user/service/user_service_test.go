package service

import (
	"context"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-backend/internal/domains/user/model"
	"marketplace-backend/internal/domains/user/repository"
	"marketplace-backend/internal/infrastructure/database"
	"marketplace-backend/pkg/jwt"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.EnsureSchema(context.Background(), db))

	return NewService(db, repository.NewRepository(), jwt.NewManager("test-secret", 1))
}

func registerRequest() model.RegisterRequest {
	return model.RegisterRequest{
		Name:     "Ana",
		Email:    "Ana@Example.com",
		Password: "hunter22",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	// Email is normalized and the hash never equals the plaintext.
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "hunter22", u.PasswordHash)

	res, err := svc.Login(ctx, model.LoginRequest{Email: "ana@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, u.ID, res.User.ID)

	got, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerRequest())
	assert.ErrorIs(t, err, model.ErrEmailAlreadyExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	req := registerRequest()
	req.Password = "short"
	_, err := svc.Register(context.Background(), req)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "Password")

	req = registerRequest()
	req.Email = "not-an-email"
	_, err = svc.Register(context.Background(), req)
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "Email")
}

// Validation is a pure syntax check; any well-formed address passes without
// the domain existing.
func TestRegisterAcceptsUnknownDomains(t *testing.T) {
	svc := newTestService(t)

	req := registerRequest()
	req.Email = "dev@no-such-host.invalid"
	u, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "dev@no-such-host.invalid", u.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Login(ctx, model.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), model.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
}

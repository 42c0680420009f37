package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/stockflow-api/internal/application/auth"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow-api/pkg/jwt"
)

const (
	secret   = "secreto-de-prueba"
	issuer   = "stockflow-test"
	password = "clave-segura-123"
)

func newAuth(t *testing.T, companyStatus string) *auth.AuthUseCase {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	store := memory.NewStore()
	store.AddCompany(&entity.Company{ID: "company-1", Name: "Andina SAS", NIT: "900123456-8", Status: companyStatus})
	store.AddUser(&entity.User{ID: "user-1", CompanyID: "company-1", Email: "vendedor@andina.co",
		PasswordHash: string(hash), Role: entity.RoleVendedor, Status: entity.UserActive})
	return auth.NewAuthUseCase(store.Users(), store.Companies(), auth.JWTConfig{Secret: secret, ExpMinutes: 5, Issuer: issuer})
}

func TestLogin_TokenLlevaEmpresaYRol(t *testing.T) {
	uc := newAuth(t, "active")
	out, err := uc.Login(context.Background(), dto.LoginRequest{Email: "vendedor@andina.co", Password: password})
	require.NoError(t, err)

	userID, companyID, role, err := jwt.Parse(secret, issuer, out.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "company-1", companyID)
	assert.Equal(t, entity.RoleVendedor, role)
	assert.Equal(t, "vendedor@andina.co", out.User.Email)
}

func TestLogin_Rechazos(t *testing.T) {
	ctx := context.Background()

	_, err := newAuth(t, "active").Login(ctx, dto.LoginRequest{Email: "vendedor@andina.co", Password: "mala"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = newAuth(t, "suspended").Login(ctx, dto.LoginRequest{Email: "vendedor@andina.co", Password: password})
	assert.ErrorIs(t, err, domain.ErrForbidden, "empresa suspendida")

	_, err = newAuth(t, "active").Login(ctx, dto.LoginRequest{Email: "", Password: password})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/pkg/jwt"
)

const secret = "test-secret"

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := jwt.Generate(secret, "user-1", "company-1", "contador", "stockflow-api", 5)
	require.NoError(t, err)

	userID, companyID, role, err := jwt.Parse(secret, "stockflow-api", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "company-1", companyID)
	assert.Equal(t, "contador", role)
}

func TestParse_RechazaIssuerYFirma(t *testing.T) {
	tok, err := jwt.Generate(secret, "user-1", "company-1", "admin", "otro", 5)
	require.NoError(t, err)

	_, _, _, err = jwt.Parse(secret, "stockflow-api", tok)
	assert.Error(t, err, "issuer distinto")

	_, _, _, err = jwt.Parse("otra-clave", "", tok)
	assert.Error(t, err, "firma inválida")
}

func TestParse_Expirado(t *testing.T) {
	tok, err := jwt.Generate(secret, "user-1", "company-1", "admin", "", -5)
	require.NoError(t, err)
	_, _, _, err = jwt.Parse(secret, "", tok)
	assert.Error(t, err)
}

func TestGenerate_SinSecret(t *testing.T) {
	_, err := jwt.Generate("", "u", "c", "admin", "", 5)
	assert.Error(t, err)
}

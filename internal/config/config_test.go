package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturio/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "https://moje.superfaktura.cz", cfg.Ledger.BaseURL)
	assert.Equal(t, "gemini", cfg.Extractor.Provider)
	assert.Equal(t, 50, cfg.Pipeline.ExportBatchSize)
	assert.Equal(t, 60, cfg.Pipeline.ConfidenceThreshold)
	assert.False(t, cfg.Pipeline.RetryErrored)
	assert.Equal(t, "noop", cfg.Email.Provider)
	assert.Empty(t, cfg.Companies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FAKTURIO_SERVER_PORT", ":9090")
	t.Setenv("FAKTURIO_DB_HOST", "db.internal")
	t.Setenv("FAKTURIO_LEDGER_EMAIL", "accounting@example.com")
	t.Setenv("FAKTURIO_PIPELINE_CONFIDENCE_THRESHOLD", "75")
	t.Setenv("FAKTURIO_API_KEY", "secret-key")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "accounting@example.com", cfg.Ledger.Email)
	assert.Equal(t, 75, cfg.Pipeline.ConfidenceThreshold)
	assert.Equal(t, "secret-key", cfg.API.Key)
}

func TestLoad_PlatformPortFallback(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Port)
}

func TestLoad_PlatformPortIgnoredWhenExplicit(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("FAKTURIO_SERVER_PORT", ":9191")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.Server.Port)
}

func TestLoad_Companies(t *testing.T) {
	t.Setenv("FAKTURIO_COMPANIES", "acme, beta")
	t.Setenv("FAKTURIO_COMPANY_ACME_NAME", "Acme s.r.o.")
	t.Setenv("FAKTURIO_COMPANY_ACME_TAX_ID", "12345678")
	t.Setenv("FAKTURIO_COMPANY_ACME_SOURCE_PREFIX", "acme-inbox")
	t.Setenv("FAKTURIO_COMPANY_ACME_LEDGER_CLIENT_ID", "42")
	t.Setenv("FAKTURIO_COMPANY_ACME_TEXT_PATTERNS", "Acme, ACME s.r.o.")
	t.Setenv("FAKTURIO_COMPANY_BETA_NAME", "Beta a.s.")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Len(t, cfg.Companies, 2)

	acme := cfg.CompanyByID("acme")
	require.NotNil(t, acme)
	assert.Equal(t, "Acme s.r.o.", acme.Name)
	assert.Equal(t, "12345678", acme.TaxID)
	assert.Equal(t, "acme-inbox", acme.SourcePrefix)
	assert.Equal(t, "42", acme.LedgerClientID)
	assert.Equal(t, []string{"Acme", "ACME s.r.o."}, acme.TextPatterns)

	beta := cfg.CompanyByID("beta")
	require.NotNil(t, beta)
	assert.Equal(t, "Beta a.s.", beta.Name)
	assert.Empty(t, beta.TextPatterns)

	assert.Nil(t, cfg.CompanyByID("gamma"))
}

func TestDSN(t *testing.T) {
	db := config.DBConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "fakturio",
		Password: "pw",
		Name:     "fakturio_db",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://fakturio:pw@localhost:5432/fakturio_db?sslmode=disable", db.DSN())
}

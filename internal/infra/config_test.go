package infra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate_RejectsInsecureDefaultSecret(t *testing.T) {
	cfg := &Config{SecretKey: "change-me-in-production"}
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsShortSecret(t *testing.T) {
	cfg := &Config{SecretKey: "too-short"}
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_AcceptsStrongSecret(t *testing.T) {
	cfg := &Config{SecretKey: strings.Repeat("a", 32)}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_BypassedByAllowInsecureDefaults(t *testing.T) {
	cfg := &Config{SecretKey: "change-me-in-production", AllowInsecureDefaults: true}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_DSN_PrefersDatabaseURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://explicit/dsn"}
	assert.Equal(t, "postgres://explicit/dsn", cfg.DSN())
}

func TestConfig_DSN_BuildsFromParts(t *testing.T) {
	cfg := &Config{PGUser: "u", PGPassword: "p", PGHost: "h", PGPort: 5432, PGDatabase: "d"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.DSN())
}

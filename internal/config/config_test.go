package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func noDotenv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		unsetEnv(t, "CONFIG_FILE")
		unsetEnv(t, "API_PORT")
		unsetEnv(t, "DB_DRIVER")
		t.Setenv("JWT_SECRET_KEY", "secret")

		cfg, err := Load(noDotenv(t))
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, 8000, cfg.APIPort)
		assert.Equal(t, "HS256", cfg.JWTAlgorithm)
		assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL())
		assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		unsetEnv(t, "CONFIG_FILE")
		t.Setenv("JWT_SECRET_KEY", "secret")
		t.Setenv("DB_DRIVER", "SQLite")
		t.Setenv("DB_PATH", "/tmp/x.db")
		t.Setenv("JWT_ALGORITHM", "hs512")
		t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
		t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
		t.Setenv("CORS_ORIGINS", "http://a.example/, http://b.example")

		cfg, err := Load(noDotenv(t))
		require.NoError(t, err)
		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.Equal(t, "/tmp/x.db", cfg.DBPath)
		assert.Equal(t, "HS512", cfg.JWTAlgorithm)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL())
		assert.Equal(t, 90*time.Second, cfg.DBConnMaxLifetime)
		assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	})

	t.Run("YAMLThenEnv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("jwt_secret_key: from-yaml\napi_port: 9000\nlog_level: debug\n"), 0o600))
		t.Setenv("CONFIG_FILE", path)
		unsetEnv(t, "JWT_SECRET_KEY")
		unsetEnv(t, "LOG_LEVEL")
		t.Setenv("API_PORT", "9100")

		cfg, err := Load(noDotenv(t))
		require.NoError(t, err)
		assert.Equal(t, "from-yaml", cfg.JWTSecretKey)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 9100, cfg.APIPort)
	})

	t.Run("MissingYAMLFile", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		t.Setenv("JWT_SECRET_KEY", "secret")
		_, err := Load(noDotenv(t))
		assert.Error(t, err)
	})

	t.Run("Dotenv", func(t *testing.T) {
		unsetEnv(t, "CONFIG_FILE")
		unsetEnv(t, "JWT_SECRET_KEY")
		unsetEnv(t, "BCRYPT_COST")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET_KEY=from-dotenv\nBCRYPT_COST=4\n"), 0o600))
		t.Cleanup(func() {
			_ = os.Unsetenv("JWT_SECRET_KEY")
			_ = os.Unsetenv("BCRYPT_COST")
		})

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.JWTSecretKey)
		assert.Equal(t, 4, cfg.BcryptCost)
	})

	t.Run("BadNumber", func(t *testing.T) {
		unsetEnv(t, "CONFIG_FILE")
		t.Setenv("JWT_SECRET_KEY", "secret")
		t.Setenv("API_PORT", "eighty")
		_, err := Load(noDotenv(t))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() EnvConfig {
		cfg := Default()
		cfg.JWTSecretKey = "secret"
		return cfg
	}

	t.Run("Valid", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	cases := []struct {
		name   string
		mutate func(*EnvConfig)
		want   string
	}{
		{"MissingSecret", func(c *EnvConfig) { c.JWTSecretKey = " " }, "JWT_SECRET_KEY"},
		{"UnknownDriver", func(c *EnvConfig) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"AsymmetricAlgorithm", func(c *EnvConfig) { c.JWTAlgorithm = "RS256" }, "JWT_ALGORITHM"},
		{"NonPositiveTTL", func(c *EnvConfig) { c.AccessTokenExpireMinutes = 0 }, "ACCESS_TOKEN_EXPIRE_MINUTES"},
		{"BcryptCost", func(c *EnvConfig) { c.BcryptCost = 99 }, "BCRYPT_COST"},
		{"Port", func(c *EnvConfig) { c.APIPort = 70000 }, "API_PORT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("ReportsEveryProblem", func(t *testing.T) {
		cfg := valid()
		cfg.JWTSecretKey = ""
		cfg.APIPort = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
		assert.Contains(t, err.Error(), "API_PORT")
	})
}

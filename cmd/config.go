package cmd

import (
	"context"
	"fmt"
	"strings"

	"etlcore/internal/etlerr"
	"etlcore/internal/secrets"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type DBConfig struct {
	Name      string `mapstructure:"name"`
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	DSNSecret string `mapstructure:"dsn_secret"`
	Org       string `mapstructure:"org"`
	Active    bool   `mapstructure:"active"`
}

// GetActiveDBConfig returns the currently active entry of the databases list.
func GetActiveDBConfig(v *viper.Viper) (*DBConfig, error) {
	var configs []DBConfig

	if err := v.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("%w: failed to parse databases config: %w", etlerr.ErrInvalidConfig, err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("%w: no active database found in config (set active: true)", etlerr.ErrInvalidConfig)
	}
	if count > 1 {
		return nil, fmt.Errorf("%w: multiple active databases found (only one can be active)", etlerr.ErrInvalidConfig)
	}

	return activeConfig, nil
}

// resolveDBConfig picks the connection settings. A databases list wins over
// the flat database.* keys. The DSN falls back to the secret named by
// dsn_secret.
func resolveDBConfig(ctx context.Context, v *viper.Viper, provider secrets.Provider) (*DBConfig, error) {
	cfg := &DBConfig{
		Name:      "default",
		Driver:    v.GetString("database.driver"),
		DSN:       v.GetString("database.dsn"),
		DSNSecret: v.GetString("database.dsn_secret"),
		Org:       v.GetString("database.org"),
	}

	if v.IsSet("databases") {
		active, err := GetActiveDBConfig(v)
		if err != nil {
			return nil, err
		}
		cfg = active
	}

	if cfg.DSN == "" && cfg.DSNSecret != "" {
		dsn, err := provider.GetSecret(ctx, cfg.DSNSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to read DSN secret %s: %w", cfg.DSNSecret, err)
		}
		cfg.DSN = dsn
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: database.dsn or database.dsn_secret is required", etlerr.ErrInvalidConfig)
	}
	if cfg.Driver == "" {
		cfg.Driver = detectDriver(cfg.DSN)
	}
	return cfg, nil
}

// detectDriver guesses the driver from the DSN when none is configured.
func detectDriver(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "sqlserver://"), strings.Contains(lower, "server="):
		return "sqlserver"
	case strings.HasPrefix(lower, "postgres"), strings.Contains(lower, "sslmode"):
		return "postgres"
	case strings.HasPrefix(lower, "oracle://"):
		return "oracle"
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"):
		return "sqlite3"
	default:
		return "mysql"
	}
}

// newProvider returns a Key Vault provider when vault.url is set, else one
// backed by local configuration and environment.
func newProvider(v *viper.Viper, log logrus.FieldLogger) (secrets.Provider, error) {
	if v.GetString("vault.url") == "" {
		return secrets.NewEnv(v), nil
	}
	return secrets.NewKeyVault(secrets.KeyVaultConfig{
		URL:          v.GetString("vault.url"),
		TenantID:     v.GetString("vault.tenant_id"),
		ClientID:     v.GetString("vault.client_id"),
		ClientSecret: v.GetString("vault.client_secret"),
	}, v, log)
}

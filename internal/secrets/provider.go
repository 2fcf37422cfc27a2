// Package secrets supplies named secrets and configuration strings, from
// Azure Key Vault or from the local environment.
package secrets

import "context"

// Provider hands out secrets (connection strings, passwords) and plain
// configuration strings (vault URL, organization). Missing names return an
// error wrapping etlerr.ErrSecretNotFound.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetConfig(ctx context.Context, name string) (string, error)
}

// ConfigSource is the read side of a *viper.Viper.
type ConfigSource interface {
	IsSet(key string) bool
	GetString(key string) string
}

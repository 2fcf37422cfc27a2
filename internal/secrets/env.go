package secrets

import (
	"context"
	"fmt"
	"strings"

	"etlcore/internal/etlerr"

	"github.com/spf13/viper"
)

// Env serves secrets from local configuration: the "secrets" section of the
// config file, or ETLCORE_SECRETS_<NAME> environment variables (a .env file
// loaded at startup counts as environment).
type Env struct {
	v *viper.Viper
}

var _ Provider = (*Env)(nil)

func NewEnv(v *viper.Viper) *Env {
	return &Env{v: v}
}

func (e *Env) GetSecret(ctx context.Context, name string) (string, error) {
	key := "secrets." + strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	if !e.v.IsSet(key) {
		return "", fmt.Errorf("%w: %s", etlerr.ErrSecretNotFound, name)
	}
	return e.v.GetString(key), nil
}

func (e *Env) GetConfig(ctx context.Context, name string) (string, error) {
	return configString(e.v, name)
}

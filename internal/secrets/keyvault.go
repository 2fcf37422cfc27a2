package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"etlcore/internal/etlerr"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/sirupsen/logrus"
)

// SecretClient is the part of *azsecrets.Client the provider uses.
type SecretClient interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

type KeyVaultConfig struct {
	URL          string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// KeyVault reads secrets from Azure Key Vault. Config strings come from the
// local configuration, since the vault URL itself is one of them.
type KeyVault struct {
	client  SecretClient
	configs ConfigSource
	log     logrus.FieldLogger
}

var _ Provider = (*KeyVault)(nil)

// NewKeyVault authenticates with a service principal when all three of
// tenant, client and secret are set, else with DefaultAzureCredential.
func NewKeyVault(cfg KeyVaultConfig, configs ConfigSource, log logrus.FieldLogger) (*KeyVault, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: vault.url is required", etlerr.ErrInvalidConfig)
	}

	var cred azcore.TokenCredential
	var err error
	if cfg.TenantID != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		log.WithField("client_id", cfg.ClientID).Debug("Using service principal credential")
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		log.Debug("Using default Azure credential chain")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(cfg.URL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return NewKeyVaultWithClient(client, configs, log), nil
}

func NewKeyVaultWithClient(client SecretClient, configs ConfigSource, log logrus.FieldLogger) *KeyVault {
	return &KeyVault{client: client, configs: configs, log: log}
}

// GetSecret returns the current version of a secret. Key Vault names cannot
// hold underscores, so "sql_dsn" is looked up as "sql-dsn".
func (k *KeyVault) GetSecret(ctx context.Context, name string) (string, error) {
	vaultName := strings.ReplaceAll(name, "_", "-")
	resp, err := k.client.GetSecret(ctx, vaultName, "", nil)
	if err != nil {
		var re *azcore.ResponseError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", etlerr.ErrSecretNotFound, vaultName)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", vaultName, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("%w: %s has no value", etlerr.ErrSecretNotFound, vaultName)
	}
	return *resp.Value, nil
}

func (k *KeyVault) GetConfig(ctx context.Context, name string) (string, error) {
	return configString(k.configs, name)
}

// ListSecrets returns every enabled secret, keyed by name with "-" replaced
// by "_" so the keys work as environment variable names.
func (k *KeyVault) ListSecrets(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	pager := k.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list secrets: %w", err)
		}
		for _, p := range page.Value {
			if p == nil || p.ID == nil {
				continue
			}
			if p.Attributes != nil && p.Attributes.Enabled != nil && !*p.Attributes.Enabled {
				k.log.WithField("secret", p.ID.Name()).Debug("Skipping disabled secret")
				continue
			}
			name := p.ID.Name()
			value, err := k.GetSecret(ctx, name)
			if err != nil {
				return nil, err
			}
			out[strings.ReplaceAll(name, "-", "_")] = value
		}
	}
	return out, nil
}

func configString(configs ConfigSource, name string) (string, error) {
	if configs == nil || !configs.IsSet(name) {
		return "", fmt.Errorf("%w: config %s", etlerr.ErrSecretNotFound, name)
	}
	return configs.GetString(name), nil
}

package cmd

import (
	"fmt"
	"os"
	"sort"

	"etlcore/internal/etlerr"
	"etlcore/internal/secrets"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showValues bool

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Read secrets from Key Vault or the local environment",
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the enabled secrets of the configured Key Vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := newProvider(viper.GetViper(), logger)
		if err != nil {
			return err
		}
		kv, ok := provider.(*secrets.KeyVault)
		if !ok {
			return fmt.Errorf("%w: secrets list needs vault.url", etlerr.ErrInvalidConfig)
		}

		all, err := kv.ListSecrets(cmd.Context())
		if err != nil {
			return err
		}
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := tablewriter.NewWriter(os.Stdout)
		tw.SetHeader([]string{"Name", "Value"})
		for _, name := range names {
			tw.Append([]string{name, mask(all[name])})
		}
		tw.Render()
		return nil
	},
}

var secretsGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print one secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := newProvider(viper.GetViper(), logger)
		if err != nil {
			return err
		}
		value, err := provider.GetSecret(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

func mask(value string) string {
	if showValues {
		return value
	}
	return "********"
}

func init() {
	RootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsListCmd, secretsGetCmd)

	secretsListCmd.Flags().BoolVar(&showValues, "show-values", false, "print secret values instead of a mask")
}

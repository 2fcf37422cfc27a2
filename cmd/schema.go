package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"etlcore/internal/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	schemaDatabase string
	schemaName     string
	schemaTable    string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the reference schema resolved for a destination table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		ref, err := resolveReference(ctx, sess, schemaDatabase, schemaName, schemaTable)
		if err != nil {
			return err
		}

		fmt.Printf("%s.%s (%d columns)\n", ref.Schema(), ref.Table(), ref.Len())
		tw := tablewriter.NewWriter(os.Stdout)
		tw.SetHeader([]string{"#", "Column", "Type", "Native"})
		for i, c := range ref.Columns() {
			tw.Append([]string{strconv.Itoa(i + 1), c.Name, c.Type.String(), c.NativeType})
		}
		tw.Render()
		return nil
	},
}

// resolveReference reads the reference schema of one table through the
// session's connection.
func resolveReference(ctx context.Context, sess *session, database, schemaName, tbl string) (*schema.Reference, error) {
	db, err := sess.conn.DB()
	if err != nil {
		return nil, err
	}
	r := schema.NewResolver(db.Unsafe(), sess.conn.Dialect(), viper.GetString("etl.schema_procedure"), logger)
	return r.Resolve(ctx, database, schemaName, tbl)
}

func init() {
	RootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVar(&schemaDatabase, "database", "", "database holding the table")
	schemaCmd.Flags().StringVar(&schemaName, "schema", "dbo", "schema holding the table")
	schemaCmd.Flags().StringVarP(&schemaTable, "table", "t", "", "table to resolve")
	schemaCmd.MarkFlagRequired("table")
}

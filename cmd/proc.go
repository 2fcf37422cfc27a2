package cmd

import (
	"etlcore/internal/coerce"
	"etlcore/internal/engine"
	"etlcore/internal/schema"

	"github.com/spf13/cobra"
)

var (
	procDatabase string
	procSchema   string
)

var procCmd = &cobra.Command{
	Use:   "proc NAME",
	Short: "Run a stored procedure with no parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		db, err := sess.conn.DB()
		if err != nil {
			return err
		}
		d := sess.conn.Dialect()

		loader := engine.NewLoader(
			schema.NewResolver(db.Unsafe(), d, "", logger),
			coerce.New(logger),
			engine.NewSQLStager(db, d, 0, logger), db, d,
			engine.LoaderOptions{}, logger,
		)
		return loader.RunProcedure(ctx, procDatabase, procSchema, args[0])
	},
}

func init() {
	RootCmd.AddCommand(procCmd)

	procCmd.Flags().StringVar(&procDatabase, "database", "", "database holding the procedure")
	procCmd.Flags().StringVar(&procSchema, "schema", "dbo", "schema holding the procedure")
}

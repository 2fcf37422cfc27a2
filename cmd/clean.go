package cmd

import (
	"fmt"

	"etlcore/internal/dialect"
	"etlcore/internal/engine"
	"etlcore/internal/etlerr"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cleanStageDB string

var cleanCmd = &cobra.Command{
	Use:   "clean TABLE...",
	Short: "Drop the staging tables left by earlier loads",
	Args:  cobra.MinimumNArgs(1),
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

		for i, tbl := range args {
			name := dialect.TableName{
				Database: cleanStageDB,
				Schema:   d.GetSchemaName(viper.GetString("etl.stage_schema")),
				Name:     engine.StagePrefix + tbl,
			}
			if err := dialect.ValidateName(name.Database, name.Schema, name.Name); err != nil {
				return fmt.Errorf("%w: %w", etlerr.ErrInvalidConfig, err)
			}
			if _, err := db.ExecContext(ctx, d.DropTableQuery(name)); err != nil {
				return fmt.Errorf("failed to drop %s: %w", d.QualifiedName(name), err)
			}
			logger.WithField("table", d.QualifiedName(name)).Infof("Dropped staging table %d/%d", i+1, len(args))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVar(&cleanStageDB, "stage-db", "", "staging database")
}

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"etlcore/internal/coerce"
	"etlcore/internal/engine"
	"etlcore/internal/monitoring"
	"etlcore/internal/schema"
	"etlcore/internal/table"

	"github.com/gosuri/uiprogress"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	loadFile       string
	loadTable      string
	loadDatabase   string
	loadDestSchema string
	loadStageDB    string
	noProgress     bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Stage a CSV file and kill-and-fill the destination table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(loadFile)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		raw, err := table.ReadCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", loadFile, err)
		}
		logger.WithFields(logrus.Fields{"file": loadFile, "rows": raw.Len()}).Info("Read input")

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

		stager := engine.NewSQLStager(db, d, viper.GetInt("etl.batch_size"), logger)
		showProgress := !noProgress && raw.Len() > 0
		if showProgress {
			uiprogress.Start()
			bar := uiprogress.AddBar(raw.Len()).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return "Staging: "
			})
			stager.OnProgress = func(rows int) {
				bar.Set(bar.Current() + rows)
			}
		}

		metrics := monitoring.NewPrometheusMetrics()
		loader := engine.NewLoader(
			schema.NewResolver(db.Unsafe(), d, viper.GetString("etl.schema_procedure"), logger),
			coerce.New(logger),
			stager, db, d,
			engine.LoaderOptions{
				Org:                    firstNonEmpty(viper.GetString("database.org"), sess.cfg.Org),
				KillFillProcedure:      viper.GetString("etl.kill_fill_procedure"),
				TolerateCoercionErrors: viper.GetBool("etl.tolerate_coercion_errors"),
			},
			logger,
		).WithMetrics(metrics)

		req := engine.LoadRequest{
			Database:    loadDatabase,
			StageDB:     loadStageDB,
			StageSchema: viper.GetString("etl.stage_schema"),
			DestSchema:  loadDestSchema,
			Table:       loadTable,
		}
		start := time.Now()
		res, loadErr := loader.Load(ctx, req, raw)
		if showProgress {
			uiprogress.Stop()
		}

		if path := viper.GetString("metrics.textfile"); path != "" {
			if err := metrics.WriteTextfile(path); err != nil {
				logger.WithError(err).Warn("Failed to write metrics textfile")
			}
		}
		if res != nil {
			printLoadSummary(res, time.Since(start))
		}
		return loadErr
	},
}

func printLoadSummary(res *engine.LoadResult, elapsed time.Duration) {
	fmt.Printf("\nRun %s -> %s\n", res.RunID, res.StageTable)

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Column", "Type", "Length", "Nulled"})
	for _, c := range res.Columns {
		length := ""
		if c.Length > 0 {
			length = strconv.Itoa(c.Length)
		}
		tw.Append([]string{c.Name, c.Type.String(), length, strconv.Itoa(res.Nulled[c.Name])})
	}
	tw.Render()

	for _, f := range res.Failures {
		fmt.Printf("  ! %s\n", f)
	}
	fmt.Printf("Rows staged: %d, elapsed %s\n", res.RowsStaged, elapsed.Round(time.Millisecond))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	RootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVarP(&loadFile, "file", "f", "", "CSV file to load")
	loadCmd.Flags().StringVarP(&loadTable, "table", "t", "", "destination table")
	loadCmd.Flags().StringVar(&loadDatabase, "database", "", "database holding the destination table")
	loadCmd.Flags().StringVar(&loadDestSchema, "dest-schema", "dbo", "destination schema")
	loadCmd.Flags().StringVar(&loadStageDB, "stage-db", "", "staging database")
	loadCmd.Flags().String("stage-schema", "", "staging schema (overrides config)")
	loadCmd.Flags().String("org", "", "organization passed to kill and fill (overrides config)")
	loadCmd.Flags().Bool("tolerate-coercion-errors", false, "stage columns that failed conversion unchanged")
	loadCmd.Flags().String("metrics-textfile", "", "write Prometheus metrics to this file")
	loadCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	loadCmd.MarkFlagRequired("file")
	loadCmd.MarkFlagRequired("table")

	viper.BindPFlag("etl.stage_schema", loadCmd.Flags().Lookup("stage-schema"))
	viper.BindPFlag("database.org", loadCmd.Flags().Lookup("org"))
	viper.BindPFlag("etl.tolerate_coercion_errors", loadCmd.Flags().Lookup("tolerate-coercion-errors"))
	viper.BindPFlag("metrics.textfile", loadCmd.Flags().Lookup("metrics-textfile"))
}

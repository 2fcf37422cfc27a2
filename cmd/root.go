package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"etlcore/internal/engine"
	"etlcore/internal/etlerr"
	"etlcore/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logger  logrus.FieldLogger = logging.Discard()
)

var RootCmd = &cobra.Command{
	Use:   "etlcore",
	Short: "Stage flat files into SQL tables against a reference schema",
	Long: `
      _   _
  ___| |_| | ___ ___  _ __ ___
 / _ \ __| |/ __/ _ \| '__/ _ \
|  __/ |_| | (_| (_) | | |  __/
 \___|\__|_|\___\___/|_|  \___|

etlcore - resolve, coerce, stage, kill and fill
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return fmt.Errorf("%w: %w", etlerr.ErrInvalidConfig, err)
		}
		logger = l
		if used := viper.ConfigFileUsed(); used != "" {
			logger.WithField("file", used).Debug("Using config file")
		}
		return nil
	},
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(etlerr.ExitCode(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./etlcore.yaml)")
	flags.String("dsn", "", "Database Source Name (DSN)")
	flags.String("driver", "", "database driver (sqlserver, azuresql, postgres, mysql, oracle, sqlite3)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")

	viper.BindPFlag("database.dsn", flags.Lookup("dsn"))
	viper.BindPFlag("database.driver", flags.Lookup("driver"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))

	viper.SetDefault("etl.stage_schema", "dbo")
	viper.SetDefault("etl.batch_size", engine.DefaultBatchSize)
	viper.SetDefault("etl.kill_fill_procedure", engine.DefaultKillFillProcedure)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Executable directory first, then the working directory.
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("etlcore")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("etlcore")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Warning: failed to read config file:", err)
	}
}

// session is an open connection to the configured database.
type session struct {
	cfg  *DBConfig
	conn *engine.Conn
}

// openSession resolves the active database configuration (reading the DSN
// from the secret provider when needed) and connects.
func openSession(ctx context.Context) (*session, error) {
	v := viper.GetViper()
	provider, err := newProvider(v, logger)
	if err != nil {
		return nil, err
	}
	cfg, err := resolveDBConfig(ctx, v, provider)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(logrus.Fields{"database": cfg.Name, "driver": cfg.Driver})
	conn, err := engine.Open(ctx, engine.Config{Driver: cfg.Driver, DSN: cfg.DSN}, log)
	if err != nil {
		return nil, err
	}
	log.Info("Connected")
	return &session{cfg: cfg, conn: conn}, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

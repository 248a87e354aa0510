package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const maxBatchSize = 10000

// options holds the flag values. Empty connection fields fall back to the
// loaded settings.
type options struct {
	sqlitePath string
	mysql      conf.MySQLSettings
	batchSize  int
	clean      bool
	skipVerify bool
}

// Command creates the command that copies a SQLite catalog into MySQL.
func Command(ctx *app.Context) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the SQLite catalog and sightings into MySQL",
		Long: `Copy every species and sighting from a SQLite database into the configured
MySQL database. Primary keys are preserved and rows already present in MySQL
are skipped, so an interrupted export can be rerun.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target, err := resolveTargets(ctx.Settings, &opts)
			if err != nil {
				return err
			}
			stats, err := run(cmd, source, target, &opts)
			if err != nil {
				return err
			}
			return app.PrintJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite-path", "", "Source SQLite database (default: database.sqlite.path)")
	cmd.Flags().StringVar(&opts.mysql.Host, "mysql-host", "", "Target MySQL host (default: database.mysql.host)")
	cmd.Flags().StringVar(&opts.mysql.Port, "mysql-port", "", "Target MySQL port (default: database.mysql.port)")
	cmd.Flags().StringVar(&opts.mysql.Username, "mysql-user", "", "Target MySQL user (default: database.mysql.username)")
	cmd.Flags().StringVar(&opts.mysql.Password, "mysql-pass", "", "Target MySQL password (default: database.mysql.password)")
	cmd.Flags().StringVar(&opts.mysql.Database, "mysql-database", "", "Target MySQL database (default: database.mysql.database)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", datastore.DefaultCopyBatchSize, "Rows per insert batch")
	cmd.Flags().BoolVar(&opts.clean, "clean", false, "Delete existing target rows before copying")
	cmd.Flags().BoolVar(&opts.skipVerify, "skip-verify", false, "Skip post-copy verification")

	return cmd
}

// resolveTargets merges flags over settings into source and target database
// settings.
func resolveTargets(settings *conf.Settings, opts *options) (source, target *conf.DatabaseSettings, err error) {
	if settings == nil {
		return nil, nil, errors.Newf("settings are not loaded").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if opts.batchSize < 1 || opts.batchSize > maxBatchSize {
		return nil, nil, errors.ValidationError(fmt.Sprintf("batch-size must be between 1 and %d", maxBatchSize))
	}

	path := opts.sqlitePath
	if path == "" {
		path = settings.Database.SQLite.Path
	}
	if path == "" {
		return nil, nil, errors.ValidationError("--sqlite-path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("sqlite_path", path).
			Build()
	}

	mysql := settings.Database.MySQL
	if opts.mysql.Host != "" {
		mysql.Host = opts.mysql.Host
	}
	if opts.mysql.Port != "" {
		mysql.Port = opts.mysql.Port
	}
	if opts.mysql.Username != "" {
		mysql.Username = opts.mysql.Username
	}
	if opts.mysql.Password != "" {
		mysql.Password = opts.mysql.Password
	}
	if opts.mysql.Database != "" {
		mysql.Database = opts.mysql.Database
	}
	if mysql.Host == "" || mysql.Database == "" {
		return nil, nil, errors.ValidationError("target MySQL host and database are required")
	}

	source = &conf.DatabaseSettings{
		Type:               datastore.DialectSQLite,
		SQLite:             conf.SQLiteSettings{Path: path},
		SlowQueryThreshold: settings.Database.SlowQueryThreshold,
	}
	target = &conf.DatabaseSettings{
		Type:               datastore.DialectMySQL,
		MySQL:              mysql,
		SlowQueryThreshold: settings.Database.SlowQueryThreshold,
	}
	return source, target, nil
}

func run(cmd *cobra.Command, source, target *conf.DatabaseSettings, opts *options) (*datastore.CopyStats, error) {
	log := logger.Global().Module("main")

	src, err := datastore.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("failed to close source database", logger.Error(err))
		}
	}()

	dst, err := datastore.Open(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open target database: %w", err)
	}
	defer func() {
		if err := dst.Close(); err != nil {
			log.Warn("failed to close target database", logger.Error(err))
		}
	}()

	copier, err := datastore.NewCopier(src, dst, datastore.CopyOptions{
		BatchSize: opts.batchSize,
		Clean:     opts.clean,
		Verify:    !opts.skipVerify,
	})
	if err != nil {
		return nil, err
	}
	return copier.Run(cmd.Context())
}

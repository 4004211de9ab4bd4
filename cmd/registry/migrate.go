package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/djb258/client-sub001/internal/config"
	"github.com/djb258/client-sub001/internal/filestore"
	"github.com/djb258/client-sub001/internal/filestore/minio"
	"github.com/djb258/client-sub001/internal/logger"
	"github.com/djb258/client-sub001/internal/migrate"
)

func (a *app) migrateCmd() *cobra.Command {
	var (
		schema string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema, view and seed migrations through the gateway",
		Long: `Applies 01_schema.sql, 02_views.sql and 03_seed.sql in order. The seed
is skipped when APP_ENV (or NODE_ENV) is production. The first failure stops
the run; files already applied are not rolled back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mc, err := config.LoadMigrations()
			if err != nil {
				return err
			}

			runner := &migrate.Runner{
				Schema:     schema,
				Seed:       migrate.DefaultSeed,
				Production: a.cfg.Production(),
				Logger:     a.log,
			}
			if runner.Schema == "" {
				reg, err := a.loadRegistry()
				if err != nil {
					return err
				}
				runner.Schema = reg.Schema
			}

			if dryRun {
				for _, f := range runner.Plan() {
					fmt.Fprintf(a.stdout, "  would apply %s\n", f)
				}
				return nil
			}

			src, closeSrc, err := a.migrationSource(ctx, mc)
			if err != nil {
				return err
			}
			defer closeSrc()
			runner.Source = src

			gw, err := a.gateway()
			if err != nil {
				return err
			}
			runner.Gateway = gw

			res, err := runner.Run(ctx)
			if res != nil {
				for _, s := range res.Steps {
					fmt.Fprintf(a.stdout, "  applied %s (job %s)\n", s.File, s.JobID)
				}
				if res.SeedSkipped {
					fmt.Fprintf(a.stdout, "  skipped %s (production)\n", runner.Seed)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Applied %d migration(s) to %s\n", len(res.Steps), res.Schema)
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "target schema (default: the registry schema)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the files that would run and exit")
	return cmd
}

// migrationSource reads from object storage when MIGRATIONS_BUCKET is set,
// otherwise from MIGRATIONS_DIR under the project root.
func (a *app) migrationSource(ctx context.Context, mc *config.Migrations) (migrate.Source, func(), error) {
	if mc.Bucket == "" {
		dir := mc.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.cfg.Root, dir)
		}
		return migrate.DirSource{Dir: dir}, func() {}, nil
	}

	store, err := minio.New(ctx, filestore.ConfigFromMigrations(mc))
	if err != nil {
		return nil, nil, err
	}
	a.log.Info("reading migrations from object storage",
		logger.F("endpoint", mc.MinIOEndpoint),
		logger.F("bucket", mc.Bucket),
		logger.F("prefix", mc.Prefix),
	)
	src := migrate.StoreSource{Store: store, Bucket: mc.Bucket, Prefix: mc.Prefix}
	return src, func() { _ = store.Close() }, nil
}

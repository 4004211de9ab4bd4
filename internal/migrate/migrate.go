// Package migrate applies an ordered list of SQL files through the gateway.
//
// Files run strictly one after another. When the source can check for files,
// every planned file is confirmed to exist before anything executes. The
// first execution failure stops the run; nothing is rolled back, so a
// partially applied sequence is visible in the returned Result.
package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/gateway"
	"github.com/djb258/client-sub001/internal/logger"
)

// Default migration plan.
const (
	DefaultDir  = "db/neon"
	DefaultSeed = "03_seed.sql"
)

// DefaultFiles are the schema and view migrations, in order.
var DefaultFiles = []string{"01_schema.sql", "02_views.sql"}

// Step records one executed file.
type Step struct {
	File     string        `json:"file"`
	JobID    string        `json:"job_id"`
	Duration time.Duration `json:"duration"`
}

// Result lists the steps that completed, in order.
type Result struct {
	Schema      string `json:"schema"`
	Steps       []Step `json:"steps"`
	SeedSkipped bool   `json:"seed_skipped"`
}

// Runner executes migrations.
type Runner struct {
	Gateway gateway.Gateway
	Source  Source
	Schema  string

	// Files run in order. Nil means DefaultFiles.
	Files []string
	// Seed runs last unless Production is set. Empty means no seed.
	Seed       string
	Production bool

	Logger *logger.Logger
}

// Plan is the ordered list of files Run will execute.
func (r *Runner) Plan() []string {
	files := r.Files
	if files == nil {
		files = DefaultFiles
	}
	plan := append([]string(nil), files...)
	if r.Seed != "" && !r.Production {
		plan = append(plan, r.Seed)
	}
	return plan
}

// Run executes the plan. On failure the returned Result holds the steps that
// completed before it and the error is errs.ErrKindMigration naming the file.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.Gateway == nil || r.Source == nil {
		return nil, errs.New(errs.ErrKindConfig, "migration runner needs a gateway and a source")
	}
	if strings.TrimSpace(r.Schema) == "" {
		return nil, errs.New(errs.ErrKindConfig, "migration runner needs a target schema")
	}
	log := r.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log = log.Component("migrate").With(logger.F("schema", r.Schema), logger.F("source", r.Source.String()))

	res := &Result{Schema: r.Schema, Steps: []Step{}}
	if r.Seed != "" && r.Production {
		res.SeedSkipped = true
		log.Info("production environment; seed skipped", logger.F("file", r.Seed))
	}

	plan := r.Plan()
	if c, ok := r.Source.(Checker); ok {
		for _, file := range plan {
			if err := c.Check(ctx, file); err != nil {
				log.Error("migration preflight failed", err, logger.F("file", file))
				return res, errs.Wrap(errs.ErrKindMigration, fmt.Sprintf("migration %s: check", file), err)
			}
		}
	}

	for _, file := range plan {
		step, err := r.apply(ctx, file)
		if err != nil {
			log.Error("migration failed", err, logger.F("file", file), logger.F("completed", len(res.Steps)))
			return res, err
		}
		res.Steps = append(res.Steps, step)
		log.Info("migration applied",
			logger.F("file", file),
			logger.F("job_id", step.JobID),
			logger.F("duration_ms", step.Duration.Milliseconds()),
		)
	}
	return res, nil
}

func (r *Runner) apply(ctx context.Context, file string) (Step, error) {
	sql, err := r.Source.Read(ctx, file)
	if err != nil {
		return Step{}, errs.Wrap(errs.ErrKindMigration, fmt.Sprintf("migration %s: read", file), err)
	}
	start := time.Now()
	out, err := r.Gateway.ExecuteSQL(ctx, gateway.ExecuteRequest{
		SQL:       string(sql),
		Schema:    r.Schema,
		Migration: true,
	})
	if err != nil {
		return Step{}, errs.Wrap(errs.ErrKindMigration, fmt.Sprintf("migration %s: execute", file), err)
	}
	return Step{File: file, JobID: out.JobID, Duration: time.Since(start)}, nil
}

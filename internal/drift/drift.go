// Package drift regenerates the registry output in memory and compares it
// with what is on disk. It never writes: fixing drift is the generator's job.
package drift

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/djb258/client-sub001/internal/codegen"
	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/logger"
	"github.com/djb258/client-sub001/internal/registry"
)

// Status is the overall verdict.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// State classifies one expected file.
type State string

const (
	StateOK      State = "ok"
	StateDrifted State = "drifted"
	StateMissing State = "missing"
)

// Entry is the outcome for one expected file. Hashes are xxh3.
type Entry struct {
	Path     string `json:"path"`
	State    State  `json:"state"`
	Expected string `json:"expected_hash"`
	Actual   string `json:"actual_hash,omitempty"`
}

// Report lists every expected file in generator order.
type Report struct {
	Status  Status   `json:"status"`
	Version string   `json:"version"`
	Total   int      `json:"total"`
	OK      int      `json:"ok"`
	Drifted []string `json:"drifted"`
	Missing []string `json:"missing"`
	Entries []Entry  `json:"entries"`
}

// Options tunes a comparison.
type Options struct {
	// Workers bounds concurrent file reads. Zero means GOMAXPROCS.
	Workers int
	Logger  *logger.Logger
}

// Verify loads the registry, regenerates in memory and compares against the
// files under root. A relative registryPath is resolved against root.
func Verify(ctx context.Context, root, registryPath string, opts Options) (*Report, error) {
	if !filepath.IsAbs(registryPath) {
		registryPath = filepath.Join(root, registryPath)
	}
	reg, err := registry.Load(registryPath)
	if err != nil {
		return nil, err
	}
	out, err := codegen.Generate(reg)
	if err != nil {
		return nil, err
	}
	rep, err := Compare(ctx, os.DirFS(root), out, opts)
	if err != nil {
		return nil, err
	}
	rep.Version = reg.Version
	return rep, nil
}

// Compare checks every file in out against fsys. Files in fsys that the
// generator does not produce are ignored.
func Compare(ctx context.Context, fsys fs.FS, out *codegen.Output, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log = log.Component("drift")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	files := out.Files()
	entries := make([]Entry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errs.Wrap(errs.ErrKindTimeout, "drift check cancelled", err)
			}
			e, err := check(fsys, f)
			if err != nil {
				return err
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{
		Status:  StatusPass,
		Total:   len(entries),
		Drifted: []string{},
		Missing: []string{},
		Entries: entries,
	}
	for _, e := range entries {
		switch e.State {
		case StateOK:
			rep.OK++
		case StateDrifted:
			rep.Drifted = append(rep.Drifted, e.Path)
		case StateMissing:
			rep.Missing = append(rep.Missing, e.Path)
		}
	}
	if len(rep.Drifted)+len(rep.Missing) > 0 {
		rep.Status = StatusFail
	}

	log.Debug("drift check complete",
		logger.F("total", rep.Total),
		logger.F("ok", rep.OK),
		logger.F("drifted", len(rep.Drifted)),
		logger.F("missing", len(rep.Missing)),
	)
	return rep, nil
}

func check(fsys fs.FS, f codegen.File) (Entry, error) {
	e := Entry{Path: f.Path, Expected: codegen.Hash([]byte(f.Content))}

	actual, err := fs.ReadFile(fsys, f.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		e.State = StateMissing
		return e, nil
	case err != nil:
		return Entry{}, errs.Wrap(errs.ErrKindQueryFailed, "read "+f.Path, err)
	}

	e.Actual = codegen.Hash(actual)
	if string(actual) == f.Content {
		e.State = StateOK
	} else {
		e.State = StateDrifted
	}
	return e, nil
}

// Passed reports whether every expected file matched.
func (r *Report) Passed() bool { return r.Status == StatusPass }

// Err is nil for a passing report and an errs.ErrKindDrift error otherwise.
func (r *Report) Err() error {
	if r.Passed() {
		return nil
	}
	return errs.Newf(errs.ErrKindDrift, "%d drifted, %d missing of %d generated files",
		len(r.Drifted), len(r.Missing), r.Total)
}

// WriteText prints the human-readable report.
func (r *Report) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.Passed() {
		ew.printf("PASS: All %d generated files match the registry (v%s).\n", r.Total, r.Version)
		return ew.err
	}

	ew.printf("FAIL: Generated files are out of sync with the column registry.\n\n")
	if len(r.Missing) > 0 {
		ew.printf("Missing files (%d):\n", len(r.Missing))
		for _, p := range r.Missing {
			ew.printf("  - %s  (file does not exist on disk)\n", p)
		}
		ew.printf("\n")
	}
	if len(r.Drifted) > 0 {
		ew.printf("Drifted files (%d):\n", len(r.Drifted))
		for _, p := range r.Drifted {
			ew.printf("  - %s  (content differs from registry)\n", p)
		}
		ew.printf("\n")
	}
	ew.printf("Summary: %d/%d OK, %d drifted, %d missing\n", r.OK, r.Total, len(r.Drifted), len(r.Missing))
	ew.printf("\nTo fix: run `registry generate` to regenerate from the registry.\n")
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

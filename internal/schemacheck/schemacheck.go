// Package schemacheck compares the column registry against the live database
// structure reported by the gateway.
//
// The registry is authoritative: a registry table or column absent from the
// database is an error. Objects that exist only in the database are not
// reported. Type mismatches are warnings unless StrictTypes is set.
package schemacheck

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/gateway"
	"github.com/djb258/client-sub001/internal/logger"
	"github.com/djb258/client-sub001/internal/registry"
)

// Severity of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one discrepancy.
type Finding struct {
	Severity Severity `json:"severity"`
	Column   string   `json:"column,omitempty"`
	Message  string   `json:"message"`
}

// TableResult is the outcome for one registry table.
type TableResult struct {
	Table    string    `json:"table"`
	Exists   bool      `json:"exists"`
	Findings []Finding `json:"findings"`
}

// Report collects results in registry order.
type Report struct {
	Version  string        `json:"version"`
	Schema   string        `json:"schema"`
	Tables   []TableResult `json:"tables"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
}

// Passed is true when there are no errors. Warnings alone pass.
func (r *Report) Passed() bool { return r.Errors == 0 }

// Err is nil for a passing report and an errs.ErrKindSchemaValidation error
// otherwise.
func (r *Report) Err() error {
	if r.Passed() {
		return nil
	}
	return errs.Newf(errs.ErrKindSchemaValidation, "live schema %s: %d error(s), %d warning(s)", r.Schema, r.Errors, r.Warnings)
}

// Options tunes validation.
//
// Types are compared with SameType: case and surrounding whitespace are
// ignored, so "TEXT" against a live "text" is not reported. Any other
// difference, including synonyms such as varchar and character varying, is.
type Options struct {
	// StrictTypes turns type mismatches into errors.
	StrictTypes bool
	Logger      *logger.Logger
}

// Validate fetches the live structure of reg.Schema once and checks every
// registry table and column against it. A gateway failure is returned as is.
func Validate(ctx context.Context, gw gateway.Gateway, reg *registry.ColumnRegistry, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log = log.Component("schemacheck")

	live, err := gw.FetchSchema(ctx, reg.Schema)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Version: reg.Version,
		Schema:  reg.Schema,
		Tables:  make([]TableResult, 0, len(reg.Tables)),
	}
	for _, t := range reg.Tables {
		res := TableResult{Table: t.Name, Findings: []Finding{}}
		lt, ok := live.Table(t.Name)
		if !ok {
			res.Findings = append(res.Findings, Finding{
				Severity: SeverityError,
				Message:  fmt.Sprintf("table %s.%s does not exist in the live database", reg.Schema, t.Name),
			})
			rep.add(res)
			continue
		}
		res.Exists = true

		for _, col := range t.Columns {
			lc, ok := lt.Column(col.Name)
			if !ok {
				res.Findings = append(res.Findings, Finding{
					Severity: SeverityError,
					Column:   col.Name,
					Message:  fmt.Sprintf("column %s.%s.%s does not exist in the live database", reg.Schema, t.Name, col.Name),
				})
				continue
			}
			if !SameType(col.Type, lc.Type) {
				sev := SeverityWarning
				if opts.StrictTypes {
					sev = SeverityError
				}
				res.Findings = append(res.Findings, Finding{
					Severity: sev,
					Column:   col.Name,
					Message:  fmt.Sprintf("type mismatch on %s.%s.%s: registry %s, live %s", reg.Schema, t.Name, col.Name, col.Type, lc.Type),
				})
			}
		}
		rep.add(res)
	}

	log.Info("live schema validated",
		logger.F("schema", reg.Schema),
		logger.F("tables", len(rep.Tables)),
		logger.F("errors", rep.Errors),
		logger.F("warnings", rep.Warnings),
	)
	return rep, nil
}

func (r *Report) add(res TableResult) {
	for _, f := range res.Findings {
		if f.Severity == SeverityError {
			r.Errors++
		} else {
			r.Warnings++
		}
	}
	r.Tables = append(r.Tables, res)
}

// SameType compares a registry type with a live type, ignoring case and
// surrounding whitespace.
func SameType(declared, live string) bool {
	return strings.EqualFold(strings.TrimSpace(declared), strings.TrimSpace(live))
}

// WriteText prints the human-readable report.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Live schema validation: %s (registry v%s)\n\n", r.Schema, r.Version)
	for _, t := range r.Tables {
		if len(t.Findings) == 0 {
			fmt.Fprintf(&b, "  [OK]      %s\n", t.Table)
			continue
		}
		for _, f := range t.Findings {
			tag := "[ERROR]  "
			if f.Severity == SeverityWarning {
				tag = "[WARNING]"
			}
			fmt.Fprintf(&b, "  %s %s\n", tag, f.Message)
		}
	}
	b.WriteString("\n")
	if r.Passed() {
		fmt.Fprintf(&b, "PASSED: %d error(s), %d warning(s)\n", r.Errors, r.Warnings)
	} else {
		fmt.Fprintf(&b, "FAILED: %d error(s), %d warning(s)\n", r.Errors, r.Warnings)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/djb258/client-sub001/internal/codegen"
	"github.com/djb258/client-sub001/internal/drift"
	"github.com/djb258/client-sub001/internal/logger"
	"github.com/djb258/client-sub001/internal/registry"
	"github.com/djb258/client-sub001/internal/schemacheck"
)

func (a *app) generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Regenerate TypeScript, Zod, ERD and DDL files from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}
			out, err := codegen.Generate(reg)
			if err != nil {
				return err
			}
			if err := codegen.Write(a.cfg.Root, out); err != nil {
				return err
			}
			for _, p := range out.Paths() {
				fmt.Fprintf(a.stdout, "  wrote %s\n", p)
			}
			fmt.Fprintf(a.stdout, "Generated %d file(s) from registry v%s\n", out.Len(), reg.Version)
			a.log.Info("generated",
				logger.F("version", reg.Version),
				logger.F("files", out.Len()),
				logger.F("digest", out.Digest()),
			)
			return nil
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	var (
		workers int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Fail when committed generated files differ from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, err := drift.Verify(cmd.Context(), a.cfg.Root, a.cfg.RegistryPath, drift.Options{
				Workers: workers,
				Logger:  a.log,
			})
			if err != nil {
				return err
			}
			if err := a.report(rep, asJSON); err != nil {
				return err
			}
			return rep.Err()
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent file reads (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	var (
		strict bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the live database structure against the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := a.gateway()
			if err != nil {
				return err
			}
			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}
			rep, err := schemacheck.Validate(cmd.Context(), gw, reg, schemacheck.Options{
				StrictTypes: strict,
				Logger:      a.log,
			})
			if err != nil {
				return err
			}
			if err := a.report(rep, asJSON); err != nil {
				return err
			}
			return rep.Err()
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat type mismatches as errors")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (a *app) lintCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check that registry metadata is complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}
			rep := registry.Lint(reg)
			if err := a.report(rep, asJSON); err != nil {
				return err
			}
			return rep.Err()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

type textReport interface {
	WriteText(w io.Writer) error
}

// report prints rep to stdout as text or indented JSON.
func (a *app) report(rep textReport, asJSON bool) error {
	if !asJSON {
		return rep.WriteText(a.stdout)
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

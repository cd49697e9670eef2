package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/apispec/internal/app"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/report"
)

// checkFlags are shared by validate and lint.
type checkFlags struct {
	failOn  string
	format  string
	disable []string
}

func (f *checkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.failOn, "fail-on", "error", "Lowest severity that fails the run: error, warn, info, hint or never.")
	cmd.Flags().StringVar(&f.format, "format", report.FormatText, "Report format: "+strings.Join(report.Formats, " or ")+".")
	cmd.Flags().StringSliceVar(&f.disable, "disable", nil, "Rules to switch off for this run. May be repeated.")
}

func validateCmd(g *globals) *cobra.Command {
	var f checkFlags
	c := &cobra.Command{
		Use:   "validate PATH...",
		Short: "Validate spec files or directories of spec files",
		Args:  checkArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), g, &f, args, (*app.App).Validate)
		},
	}
	f.register(c)
	return c
}

func lintCmd(g *globals) *cobra.Command {
	var f checkFlags
	c := &cobra.Command{
		Use:   "lint PATH...",
		Short: "Check spec files against the configured style rules",
		Args:  checkArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), g, &f, args, (*app.App).Lint)
		},
	}
	f.register(c)
	return c
}

func runCheck(ctx context.Context, g *globals, f *checkFlags, paths []string, run func(*app.App, context.Context, []string) (app.Results, error)) error {
	threshold, err := report.ParseThreshold(f.failOn)
	if err != nil {
		return usageError(err)
	}
	if !slices.Contains(report.Formats, f.format) {
		return usageError(fmt.Errorf("unknown format %q: must be %s", f.format, strings.Join(report.Formats, " or ")))
	}

	a, err := g.newApp(ctx, f.disable...)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := run(a, ctx, paths)
	if err != nil {
		return toExitError(err)
	}

	issues := results.Issues()
	if err := report.Write(g.streams.Out, f.format, issues); err != nil {
		return err
	}
	if err := results.Err(); err != nil {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(g.streams.Err, "%s: %v\n", r.Path, r.Err)
			}
		}
		return &ExitError{Code: ExitIO, Message: fmt.Sprintf("%d of %d files could not be loaded", countErrors(results), len(results))}
	}
	if threshold != issue.SeverityOff && report.Failed(issues, threshold) {
		return &ExitError{Code: ExitFindings, Message: "check failed: " + report.Summary(issues)}
	}
	return nil
}

func countErrors(results app.Results) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

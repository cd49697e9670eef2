package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/apispec/internal/app"
	"github.com/vk/apispec/internal/buildinfo"
	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/hcl_adapter"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitFindings = 1
	ExitUsage    = 2
	ExitIO       = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Streams are the standard streams commands read from and write to.
// Reports and generated output go to Out, logs and diagnostics to Err.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// globals holds the persistent flags.
type globals struct {
	streams   Streams
	config    string
	logLevel  string
	logFormat string
	workers   int
	cache     string
}

// Execute runs the command line args. The returned error is an *ExitError
// unless something unexpected happened.
func Execute(ctx context.Context, args []string, streams Streams) error {
	slog.Debug("CLI parser started.")
	root := NewRootCommand(streams)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return toExitError(err)
	}
	return nil
}

// NewRootCommand builds the apispec command tree.
func NewRootCommand(streams Streams) *cobra.Command {
	g := &globals{streams: streams}

	root := &cobra.Command{
		Use:   "apispec",
		Short: "apispec validates, lints, bundles, documents and generates code for Swagger 2.0 specs",
		Long: `apispec works with Swagger 2.0 API descriptions.

It validates documents, checks their style, bundles split documents into
one, renders browsable documentation and generates Go server and client
stubs. Settings are read from .apispec.hcl when present.`,
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&g.config, "config", "", "Path to the configuration file (default: "+".apispec.hcl looked up from the working directory)")
	flags.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.IntVar(&g.workers, "workers", 0, "Number of spec files processed concurrently. 0 uses one per CPU.")
	flags.StringVar(&g.cache, "cache", "", "Directory of the result cache. Empty disables it unless the configuration sets one.")

	root.AddCommand(
		validateCmd(g),
		lintCmd(g),
		bundleCmd(g),
		genCmd(g),
		docsCmd(g),
		rulesCmd(g),
		cleanCmd(g),
		rpcCmd(g),
		versionCmd(g),
	)
	return root
}

// newApp validates the global flags and builds the application.
func (g *globals) newApp(ctx context.Context, disable ...string) (*app.App, error) {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg, err := app.NewConfig(app.Config{
		ConfigPath: g.config,
		WorkDir:    wd,
		LogFormat:  g.logFormat,
		LogLevel:   g.logLevel,
		Workers:    g.workers,
		CacheDir:   g.cache,
	})
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI parameter validation complete.")

	a, err := app.NewApp(ctx, g.streams.Err, cfg, hcl_adapter.NewLoader(), disable...)
	if err != nil {
		return nil, toExitError(err)
	}
	return a, nil
}

func usageError(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// toExitError picks the exit code for err: configuration problems are usage
// errors, problems reading documents are I/O errors.
func toExitError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	switch {
	case errs.IsKind(err, errs.KindInvalidConfig):
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	case errs.IsKind(err, errs.KindNotFound),
		errs.IsKind(err, errs.KindParse),
		errs.IsKind(err, errs.KindIncludeCycle),
		errs.IsKind(err, errs.KindUnresolvedRef),
		errs.IsKind(err, errs.KindUnsupported):
		return &ExitError{Code: ExitIO, Message: err.Error()}
	case errs.IsKind(err, errs.KindInvalidSpec):
		return &ExitError{Code: ExitFindings, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: ExitFindings, Message: "interrupted"}
	}
	if isUsage(err) {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return &ExitError{Code: ExitFindings, Message: fmt.Sprintf("error: %v", err)}
}

func isUsage(err error) bool {
	return strings.HasPrefix(err.Error(), "unknown command") || strings.HasPrefix(err.Error(), "unknown flag")
}

// checkArgs turns cobra's argument validation failures into usage errors.
func checkArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

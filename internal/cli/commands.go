package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vk/apispec/internal/app"
	"github.com/vk/apispec/internal/buildinfo"
	"github.com/vk/apispec/internal/codegen"
	"github.com/vk/apispec/internal/docs"
	"github.com/vk/apispec/internal/report"
	"github.com/vk/apispec/internal/rpc"
)

func bundleCmd(g *globals) *cobra.Command {
	var format, output string
	c := &cobra.Command{
		Use:   "bundle SPEC",
		Short: "Inline external references and includes into a single document",
		Args:  checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != app.FormatYAML && format != app.FormatJSON {
				return usageError(fmt.Errorf("unknown format %q: must be %s or %s", format, app.FormatYAML, app.FormatJSON))
			}
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.Bundle(cmd.Context(), args[0], format)
			if err != nil {
				return toExitError(err)
			}
			if output == "" {
				_, err = g.streams.Out.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return &ExitError{Code: ExitIO, Message: err.Error()}
			}
			return nil
		},
	}
	c.Flags().StringVar(&format, "format", app.FormatYAML, "Output format: yaml or json.")
	c.Flags().StringVarP(&output, "output", "o", "", "Write the bundle to this file instead of stdout.")
	return c
}

func genCmd(g *globals) *cobra.Command {
	var pkg, output string
	var tests bool

	generate := func(cmd *cobra.Command, path string, targets []string) error {
		a, err := g.newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.Tool().Codegen
		opts := codegen.Options{Package: cfg.Package, Targets: targets, Tests: cfg.Tests}
		if targets == nil {
			opts.Targets = cfg.Targets
		}
		if cmd.Flags().Changed("package") {
			opts.Package = pkg
		}
		if cmd.Flags().Changed("tests") {
			opts.Tests = tests
		}
		dir := cfg.Output
		if cmd.Flags().Changed("output") {
			dir = output
		}

		res, err := a.Generate(cmd.Context(), path, dir, opts)
		if res != nil && res.Issues.HasErrors() {
			_ = report.Text(g.streams.Err, res.Issues)
		}
		if err != nil {
			return toExitError(err)
		}
		for _, name := range res.Files.Names() {
			fmt.Fprintln(g.streams.Out, filepath.Join(dir, name))
		}
		return nil
	}

	c := &cobra.Command{
		Use:   "gen SPEC",
		Short: "Generate Go models, server and client code",
		Long: `Generate Go code from a valid spec.

Without a subcommand the targets of the configuration file are generated
(models, server and client by default). Subcommands generate one target.`,
		Args: checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return generate(cmd, args[0], nil)
		},
	}
	c.PersistentFlags().StringVar(&pkg, "package", "api", "Package name of the generated code.")
	c.PersistentFlags().StringVarP(&output, "output", "o", "gen", "Directory the files are written to.")
	c.PersistentFlags().BoolVar(&tests, "tests", false, "Also generate tests for the server and client.")

	for _, target := range codegen.Targets {
		c.AddCommand(&cobra.Command{
			Use:   target + " SPEC",
			Short: "Generate the " + target + " code only",
			Args:  checkArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return generate(cmd, args[0], []string{target})
			},
		})
	}
	return c
}

func docsCmd(g *globals) *cobra.Command {
	c := &cobra.Command{
		Use:   "docs",
		Short: "Render browsable documentation for a spec",
	}

	var title, output string
	build := &cobra.Command{
		Use:   "build SPEC",
		Short: "Write the documentation as a single HTML page",
		Args:  checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.BuildDocs(cmd.Context(), args[0], output, app.DocsOptions{Title: title})
			if err != nil {
				return toExitError(err)
			}
			fmt.Fprintf(g.streams.Out, "%s\nwritten to %s\n", summary, output)
			return nil
		},
	}
	build.Flags().StringVarP(&output, "output", "o", "index.html", "File the page is written to.")
	build.Flags().StringVar(&title, "title", "", "Page title. Defaults to the spec's info.title.")

	var addr, serveTitle string
	serve := &cobra.Command{
		Use:   "serve SPEC",
		Short: "Serve the documentation and reload it when the spec changes",
		Args:  checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ServeDocs(cmd.Context(), args[0], app.DocsOptions{Title: serveTitle, Addr: addr}); err != nil {
				return toExitError(err)
			}
			return nil
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "Listen address. Defaults to docs.addr of the configuration.")
	serve.Flags().StringVar(&serveTitle, "title", "", "Page title. Defaults to the spec's info.title.")

	follow := &cobra.Command{
		Use:   "follow URL",
		Short: "Print a line each time a running docs server rebuilds",
		Args:  checkArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := docs.Follow(cmd.Context(), args[0], g.streams.Out); err != nil {
				return toExitError(err)
			}
			return nil
		},
	}

	c.AddCommand(build, serve, follow)
	return c
}

func rulesCmd(g *globals) *cobra.Command {
	var format string
	c := &cobra.Command{
		Use:   "rules",
		Short: "List validation and lint rules with their effective severity",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(report.Formats, format) {
				return usageError(fmt.Errorf("unknown format %q: must be %s", format, strings.Join(report.Formats, " or ")))
			}
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			infos := a.Rules()
			if format == report.FormatJSON {
				return writeJSON(g.streams.Out, infos)
			}

			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{info.Name, info.Set, info.Severity.String(), info.Description})
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("RULE", "SET", "SEVERITY", "DESCRIPTION").
				Rows(rows...)
			_, err = fmt.Fprintln(g.streams.Out, t.String())
			return err
		},
	}
	c.Flags().StringVar(&format, "format", report.FormatText, "Output format: text or json.")
	return c
}

func cleanCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [DIR]",
		Short: "Delete result cache artifacts under DIR and nothing else",
		Args:  checkArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.Clean(cmd.Context(), root)
			for _, path := range removed {
				fmt.Fprintf(g.streams.Out, "removed %s\n", path)
			}
			if err != nil {
				return &ExitError{Code: ExitIO, Message: err.Error()}
			}
			return nil
		},
	}
}

func rpcCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rpc",
		Short: "Serve JSON-RPC requests from editors over stdio",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			in, ok := g.streams.In.(io.ReadCloser)
			if !ok {
				in = io.NopCloser(g.streams.In)
			}
			out, ok := g.streams.Out.(io.WriteCloser)
			if !ok {
				out = nopWriteCloser{g.streams.Out}
			}
			return a.ServeRPC(cmd.Context(), rpc.Stdio(in, out))
		},
	}
}

func versionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  checkArgs(cobra.NoArgs),
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(g.streams.Out, buildinfo.String())
		},
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package cli holds the cobra commands of the contentstudio binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/contentstudio/server/internal/app"
	"github.com/contentstudio/server/internal/workflow/graph"
	logx "github.com/contentstudio/server/pkg/logger"
)

// WorkflowFactory builds the workflows for a one-off run. The returned
// func releases what the factory opened.
type WorkflowFactory func(ctx context.Context, cfg *app.AppConfig) (*graph.Workflows, func(), error)

type options struct {
	envFile  string
	jsonOut  bool
	cfg      *app.AppConfig
	newFlows WorkflowFactory
}

func defaultFactory(ctx context.Context, cfg *app.AppConfig) (*graph.Workflows, func(), error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a.Workflows, a.Close, nil
}

// NewRootCommand creates the root command. A nil factory builds the
// workflows from the environment.
func NewRootCommand(factory WorkflowFactory) *cobra.Command {
	if factory == nil {
		factory = defaultFactory
	}
	opts := &options{newFlows: factory}

	cmd := &cobra.Command{
		Use:   "contentstudio",
		Short: "Content Studio - LLM content workflows",
		Long: `Content Studio generates blog posts, news articles, YouTube scripts,
visual posts and repurposed content with multi-step LLM workflows.

Run 'contentstudio serve' to start the HTTP API used by the front end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(opts.envFile)
			if err != nil {
				return err
			}
			logx.Init(logx.LoggerOpts{
				Environment: cfg.Environment(),
				Level:       cfg.LogLevel,
				Output:      logOutput(cmd, cfg),
			})
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file (ignored when missing)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print the full workflow state as JSON")

	cmd.AddCommand(
		newServeCommand(opts),
		newRunCommand(opts),
		newTranscriptCommand(opts),
	)
	return cmd
}

// logOutput keeps stdout clean for command results: workflow logs go to
// stderr unless the process runs as a server in production.
func logOutput(cmd *cobra.Command, cfg *app.AppConfig) io.Writer {
	switch {
	case !cfg.Environment().IsProduction():
		return zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}
	case cmd.Name() == "serve":
		return nil
	default:
		return cmd.ErrOrStderr()
	}
}

// print writes text, or v as indented JSON with --json.
func (o *options) print(cmd *cobra.Command, text string, v any) error {
	out := cmd.OutOrStdout()
	if o.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}

func (o *options) workflows(ctx context.Context) (*graph.Workflows, func(), error) {
	wf, release, err := o.newFlows(ctx, o.cfg)
	if err != nil {
		return nil, nil, err
	}
	if release == nil {
		release = func() {}
	}
	return wf, release, nil
}

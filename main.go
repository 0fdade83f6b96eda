package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chazu/gusset/pkg/config"
	"github.com/chazu/gusset/pkg/model"
	"github.com/chazu/gusset/pkg/solve"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:   "gusset",
		Short: "Gusset is an editor core for 2D structural models",
		Long: `Gusset keeps frame and plate models consistent while they are edited:
geometry, topology, boundary-conforming meshes and loads, with a script
console and a frame solver behind an HTTP API.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newSolveCmd())

	return root.ExecuteContext(ctx)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the editor API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			app, err := NewApp(config.Load(), logger)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(cmd.Context())
		},
	}
}

func newEvalCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Evaluate a model script and print the resulting model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			sess, res, err := evalFile(logger, args[0])
			if err != nil {
				return err
			}
			if err := reportEvalErrors(args[0], res); err != nil {
				return err
			}
			for _, w := range res.Warnings {
				logger.Warn(w)
			}
			return writeJSON(output, sess.Snapshot())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

func newSolveCmd() *cobra.Command {
	var (
		output   string
		caseID   int64
		analysis string
	)
	cmd := &cobra.Command{
		Use:   "solve <script>",
		Short: "Evaluate a model script and run a static analysis on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			sess, res, err := evalFile(logger, args[0])
			if err != nil {
				return err
			}
			if err := reportEvalErrors(args[0], res); err != nil {
				return err
			}
			solver := newSolver(config.Load(), logger)
			req, resp, err := sess.Solve(cmd.Context(), solver,
				model.LoadCaseID(caseID), solve.AnalysisType(analysis))
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("solve failed: %s", resp.Error)
			}
			out := struct {
				Response *solve.Response     `json:"response"`
				Diagrams []solve.BeamDiagram `json:"diagrams"`
			}{resp, solve.Diagrams(req, resp)}
			return writeJSON(output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().Int64Var(&caseID, "case", 0, "load case id (0 = default case)")
	cmd.Flags().StringVar(&analysis, "analysis", string(solve.AnalysisFrame), "analysis type")
	return cmd
}

// writeJSON writes v indented to path, or stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Logger plumbing, carried through the command context.

type ctxKey int

const loggerKey ctxKey = 0

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

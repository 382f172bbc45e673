package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	"github.com/vampirenirmal/codeorc/internal/core"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
	"github.com/vampirenirmal/codeorc/internal/storage"
)

// runFlags are shared by generate and resume.
type runFlags struct {
	outputDir string
	naming    string
	analyze   bool
	asJSON    bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "out", "o", "", "Write generated files below this directory (default: generation.output_dir)")
	cmd.Flags().StringVar(&f.naming, "naming", "id", "Output directory naming: id, timestamp or descriptive")
	cmd.Flags().BoolVar(&f.analyze, "analyze", false, "Analyze the generated files when the run ends")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the run state as JSON")
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		flags runFlags
		runID string
	)

	cmd := &cobra.Command{
		Use:   "generate <modules.yaml>",
		Short: "Generate every module of a batch in dependency order",
		Long: `Generates the modules of a batch one at a time in dependency order. Each
module sees the project context left by the modules before it. The run is
checkpointed after every module and can be continued with "codeorc resume".

Example:
  codeorc generate modules.yaml --out ./generated
  codeorc generate modules.yaml --analyze -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modules, err := loadModules(args[0])
			if err != nil {
				return err
			}
			gen, err := a.generator()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()

			m := a.machine(gen, core.WithRunID(runID))
			state, runErr := m.Run(ctx, modules)

			label := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			return a.finishRun(ctx, cmd.OutOrStdout(), state, runErr, label, flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "Use this run id instead of a generated one")
	return cmd
}

func newResumeCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue a checkpointed run",
		Long: `Loads the checkpoint of a failed or interrupted run and generates the
modules that have not completed yet. Failed modules are retried.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := a.checkpoints().Load(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			gen, err := a.generator()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()

			m := a.machine(gen)
			state, runErr := m.Resume(ctx, saved)
			return a.finishRun(ctx, cmd.OutOrStdout(), state, runErr, saved.RunID, flags)
		},
	}

	flags.register(cmd)
	return cmd
}

// finishRun reports a run, writes its files and optionally analyzes them.
// Files are written even for a failed run since they hold every committed
// module.
func (a *app) finishRun(ctx context.Context, out io.Writer, state generation.GenerationState, runErr error, label string, flags runFlags) error {
	if flags.asJSON {
		if err := printJSON(out, state); err != nil {
			return err
		}
	} else {
		printRun(out, state)
	}

	dir := flags.outputDir
	if dir == "" {
		dir = a.cfg.Generation.OutputDir
	}
	if dir != "" && len(state.GeneratedFiles) > 0 {
		naming, err := storage.ParseOutputNaming(flags.naming)
		if err != nil {
			return err
		}
		now := time.Now()
		rel := storage.RunOutputPath(state.RunID, label, naming, now)
		// The interrupt context may already be done; writing must still finish.
		writeCtx := context.WithoutCancel(ctx)
		if err := storage.WriteRunOutput(writeCtx, storage.NewFileSystem(dir), rel, state.RunID, state.GeneratedFiles, now); err != nil {
			return fmt.Errorf("writing run output: %w", err)
		}
		if !flags.asJSON {
			fmt.Fprintf(out, "  output:    %s\n", filepath.Join(dir, filepath.FromSlash(rel)))
		}
	}

	if flags.analyze && len(state.GeneratedFiles) > 0 && !core.IsCancellation(runErr) {
		result, err := a.aggregator().Analyze(ctx, analysis.SourceFromState(state))
		if err != nil {
			return fmt.Errorf("analyzing run: %w", err)
		}
		if flags.asJSON {
			if err := printJSON(out, result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out)
			printAnalysis(out, result, a.verbose)
		}
	}

	return runErr
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

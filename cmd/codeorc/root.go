package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/codeorc/internal/agent"
	"github.com/vampirenirmal/codeorc/internal/analysis"
	"github.com/vampirenirmal/codeorc/internal/analysis/depgraph"
	"github.com/vampirenirmal/codeorc/internal/analysis/heuristics"
	"github.com/vampirenirmal/codeorc/internal/config"
	"github.com/vampirenirmal/codeorc/internal/core"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/storage"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	configPath string
	verbose    bool

	cfg        *config.Config
	logger     *slog.Logger
	store      core.Storage
	closeStore func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "codeorc",
		Short: "Dependency-ordered code generation and analysis",
		Long: `codeorc generates a project module by module in dependency order,
keeps a shared project context between modules, and analyzes the result.

Runs are checkpointed so an interrupted or failed run can be resumed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(commandContext(cmd))
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newResolveCmd(a),
		newGenerateCmd(a),
		newResumeCmd(a),
		newRunsCmd(a),
		newAnalyzeCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "codeorc %s (%s)\n", Version, GitCommit)
			},
		},
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(a.logger)

	store, closeStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	a.store = store
	a.closeStore = closeStore

	a.logger.Debug("configuration loaded",
		"generator", cfg.Generation.Generator,
		"storage", cfg.Storage.Backend)
	return nil
}

func (a *app) close() error {
	if a.closeStore == nil {
		return nil
	}
	err := a.closeStore()
	a.closeStore = nil
	return err
}

func (a *app) checkpoints() *core.CheckpointManager {
	return core.NewCheckpointManager(a.store)
}

func (a *app) machine(gen core.Generator, opts ...core.MachineOption) *core.Machine {
	base := []core.MachineOption{
		core.WithLogger(a.logger),
		core.WithModuleTimeout(a.cfg.Generation.ModuleTimeout),
	}
	if a.cfg.Generation.Checkpoints {
		base = append(base, core.WithCheckpoints(a.checkpoints()))
	}
	return core.NewMachine(gen, append(base, opts...)...)
}

func (a *app) generator() (core.Generator, error) {
	return agent.NewGenerator(a.cfg, a.store, a.logger)
}

// aggregator wires the default analyzers with the configured scoring and
// persists reports next to the run checkpoints.
func (a *app) aggregator() *analysis.Aggregator {
	ac := a.cfg.Analysis
	graph := depgraph.New(depgraph.Config{
		MediumMaxNodes: ac.Cycles.MediumMaxNodes,
		Boundaries:     ac.Cycles.Boundaries,
	}, depgraph.WithLogger(a.logger))

	return analysis.NewAggregator(heuristics.Ports(graph, a.logger),
		analysis.WithTTL(ac.CacheTTL),
		analysis.WithAnalyzerTimeout(ac.AnalyzerTimeout),
		analysis.WithConcurrency(ac.Concurrency),
		analysis.WithCache(analysis.NewCache(ac.CacheEntries, time.Now)),
		analysis.WithQualityWeights(analysis.QualityWeights{
			Maintainability: ac.QualityWeights.Maintainability,
			Reliability:     ac.QualityWeights.Reliability,
			Security:        ac.QualityWeights.Security,
			Coverage:        ac.QualityWeights.Coverage,
			Documentation:   ac.QualityWeights.Documentation,
		}),
		analysis.WithSeverityWeights(analysis.SeverityWeights{
			domain.SeverityLow:      ac.SeverityWeights.Low,
			domain.SeverityMedium:   ac.SeverityWeights.Medium,
			domain.SeverityHigh:     ac.SeverityWeights.High,
			domain.SeverityCritical: ac.SeverityWeights.Critical,
		}),
		analysis.WithReportStore(analysis.NewReportStore(a.store)),
		analysis.WithAggregatorLogger(a.logger),
	)
}

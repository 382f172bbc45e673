package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

func newRunsCmd(a *app) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List checkpointed runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := a.checkpoints().List(commandContext(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, s := range states {
				if status != "" && string(s.Status) != status {
					continue
				}
				printRunLine(out, s)
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, faint.Sprint("no runs"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list runs in this status (completed, failed, cancelled, ...)")

	cmd.AddCommand(newRunsShowCmd(a), newRunsDeleteCmd(a))
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		files  bool
	)

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.checkpoints().Load(commandContext(cmd), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, state)
			}

			printRun(out, state)
			printHistory(cmd, state)
			if files {
				for _, p := range sortedKeys(state.GeneratedFiles) {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full run state as JSON")
	cmd.Flags().BoolVar(&files, "files", false, "List generated file paths")
	return cmd
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkpoints().Delete(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", success.Sprint("✓"), args[0])
			return nil
		},
	}
}

func printHistory(cmd *cobra.Command, state generation.GenerationState) {
	if len(state.GenerationHistory) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, heading.Sprint("History"))
	for _, h := range state.GenerationHistory {
		fmt.Fprintf(out, "  %s  %-20s %s\n", h.Timestamp.Format("15:04:05"), h.ModuleID, faint.Sprint(h.ContextDigest[:min(12, len(h.ContextDigest))]))
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"grid-integration-study/store"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show stored study runs",
		Long: `History lists the runs saved with "gridstudy study --save", newest first.
Given a run id it prints the evaluated snapshots of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "l", 10, "Maximum number of runs to list")
	cmd.Flags().String("db-dir", "", "History database directory (default: db_dir of the config file)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: ./gridstudy.yaml or the XDG config dir)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("db-dir")
	if dir == "" {
		cfg, err := loadConfigFile(cmd)
		if err != nil {
			return err
		}
		dir = cfg.DBDir
	}
	db, err := store.Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		cycles, err := db.Cycles(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(cycles) == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		for _, c := range cycles {
			fmt.Fprintf(w, "%s (%s)\n", c.Label, c.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "  line  %3d %8.3f %%\n", c.WorstLine, c.MaxLineLoading)
			fmt.Fprintf(w, "  trafo %3d %8.3f %%\n", c.WorstTrafo, c.MaxTrafoLoading)
			fmt.Fprintf(w, "  max   %3d %8.3f p.u.\n", c.MaxVMBus, c.MaxVM)
			fmt.Fprintf(w, "  min   %3d %8.3f p.u.\n", c.MinVMBus, c.MinVM)
			fmt.Fprintf(w, "  generation %.3f MW, %d violations\n", c.TotalSgenMW, c.Violations)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := db.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs stored")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %d snapshots  %d violations\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Cycles, r.Violations)
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewCoSimCmd creates the cosim command.
func NewCoSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cosim",
		Short: "Run the co-simulation and print its active power samples",
		Long: `Cosim starts the simulation engine in batch mode, reads the active power
variable it leaves in its MAT-file and prints every sample. A sample value is
the raw engine output truncated to an integer and divided by 1000.

Examples:
  # Start the engine configured in gridstudy.yaml
  gridstudy cosim

  # Read the data file of an earlier engine run
  gridstudy cosim --mat-file activePowerData.mat`,
		Args: cobra.NoArgs,
		RunE: runCoSimCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: ./gridstudy.yaml or the XDG config dir)")
	cmd.Flags().String("mat-file", "",
		"Read this MAT-file instead of starting the engine")
	cmd.Flags().String("engine", "",
		"Engine executable")
	cmd.Flags().String("variable", "",
		"Variable holding the samples")

	return cmd
}

func runCoSimCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if matFile, _ := flags.GetString("mat-file"); matFile != "" {
		cfg.CoSim.DataFile = matFile
		cfg.CoSim.SkipEngine = true
	}
	if engine, _ := flags.GetString("engine"); engine != "" {
		cfg.CoSim.Command = engine
	}
	if variable, _ := flags.GetString("variable"); variable != "" {
		cfg.CoSim.Variable = variable
	}
	logger := newLogger(cmd, getVerboseFlag(cmd) || cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples, err := newBridge(cfg.CoSim, logger).Run(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%5s %12s %9s\n", "index", "raw", "p_mw")
	for _, s := range samples {
		fmt.Fprintf(w, "%5d %12.3f %9.3f\n", s.Index, s.Raw, s.Value)
	}
	return nil
}

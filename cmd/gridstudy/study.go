package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"grid-integration-study/config"
	"grid-integration-study/cosim"
	"grid-integration-study/evaluate"
	"grid-integration-study/network"
	"grid-integration-study/powerflow"
	"grid-integration-study/report"
	"grid-integration-study/scenario"
	"grid-integration-study/store"
	"grid-integration-study/visual"
)

const (
	unmodifiedTitle = "Unmodified Grid"
	modifiedTitle   = "Modified Grid"
)

// NewStudyCmd creates the study command.
func NewStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Evaluate the unmodified and the modified grid",
		Long: `Study prepares the base grid (renamed generators, exchanged transformer,
scaled line lengths and a zero generator at every feeder end), solves it and
reports it as "Unmodified Grid". It then applies the PV setpoints, the storage
loads and the tap position of the modified grid, solves again and reports it
as "Modified Grid".

Limit violations are marked with "NOT OK!". Each snapshot is rendered to an
HTML page in the output directory.

Examples:
  # Study the default synthetic grid
  gridstudy study

  # Take the first PV setpoints from a co-simulation data file
  gridstudy study --cosim --mat-file activePowerData.mat

  # Keep the results in the history database
  gridstudy study --save --markdown study.md`,
		Args: cobra.NoArgs,
		RunE: runStudyCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: ./gridstudy.yaml or the XDG config dir)")
	cmd.Flags().String("network-class", config.DefaultNetworkClass,
		"Synthetic network class")
	cmd.Flags().StringP("network", "n", "",
		"JSON network snapshot used instead of the synthetic grid")
	cmd.Flags().StringP("out-dir", "o", ".",
		"Directory receiving the HTML pages")
	cmd.Flags().StringP("markdown", "m", "",
		"Write a Markdown report to the specified file")
	cmd.Flags().Bool("no-display", false,
		"Do not print the voltage profiles")
	cmd.Flags().Bool("cosim", false,
		"Take the first PV setpoints from the co-simulation")
	cmd.Flags().String("mat-file", "",
		"Read co-simulation samples from this MAT-file instead of starting the engine")
	cmd.Flags().Bool("save", false,
		"Store both evaluations in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data dir)")

	return cmd
}

func runStudyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := newLogger(cmd, getVerboseFlag(cmd) || cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = runStudy(ctx, cfg, cmd.OutOrStdout(), logger)
	return err
}

// loadConfigFile loads the file named by the --config flag, or the first
// default location that exists, over the defaults.
func loadConfigFile(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("%s: %w", configPath, config.ErrConfigNotFound)
		}
		return config.NewConfig(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// buildConfig loads the configuration file and applies the study flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfigFile(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("network-class") {
		cfg.NetworkClass, _ = flags.GetString("network-class")
		cfg.NetworkFile = ""
	}
	if flags.Changed("network") {
		cfg.NetworkFile, _ = flags.GetString("network")
	}
	if flags.Changed("out-dir") {
		cfg.OutDir, _ = flags.GetString("out-dir")
	}
	if flags.Changed("markdown") {
		cfg.MarkdownFile, _ = flags.GetString("markdown")
	}
	if noDisplay, _ := flags.GetBool("no-display"); noDisplay {
		cfg.Display = false
	}
	if enabled, _ := flags.GetBool("cosim"); enabled {
		cfg.CoSim.Enabled = true
	}
	if matFile, _ := flags.GetString("mat-file"); matFile != "" {
		cfg.CoSim.DataFile = matFile
		cfg.CoSim.SkipEngine = true
	}
	if save, _ := flags.GetBool("save"); save {
		cfg.SaveToDB = true
	}
	if dbDir, _ := flags.GetString("db-dir"); dbDir != "" {
		cfg.DBDir = dbDir
	}
	return cfg, nil
}

// studyResult holds the evaluations of one study run.
type studyResult struct {
	RunID      uuid.UUID
	Unmodified evaluate.Evaluation
	Modified   evaluate.Evaluation
}

func loadNetwork(cfg *config.Config) (*network.Net, error) {
	if cfg.NetworkFile != "" {
		return network.ImportFromFile(cfg.NetworkFile)
	}
	return network.Synthetic(cfg.NetworkClass)
}

// newBridge returns the co-simulation source described by c. Empty fields
// keep the engine defaults.
func newBridge(c config.CoSim, logger zerolog.Logger) cosim.Bridge {
	b := cosim.NewEngineBridge(c.WorkDir, logger)
	if c.Command != "" {
		b.Command = c.Command
	}
	if c.Args != nil {
		b.Args = c.Args
	}
	if c.Procedure != "" {
		b.Procedure = c.Procedure
	}
	if c.DataFile != "" {
		b.DataFile = c.DataFile
	}
	if c.Variable != "" {
		b.Variable = c.Variable
	}
	if !c.SkipEngine {
		return b
	}
	path := b.DataFile
	if !filepath.IsAbs(path) && b.Dir != "" {
		path = filepath.Join(b.Dir, path)
	}
	return &cosim.FileBridge{Path: path, Variable: b.Variable}
}

// runStudy runs both cycles. The co-simulation starts after the unmodified
// grid has been reported.
func runStudy(ctx context.Context, cfg *config.Config, out io.Writer, logger zerolog.Logger) (res *studyResult, err error) {
	net, err := loadNetwork(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := scenario.PrepareBase(net, cfg.Base); err != nil {
		return nil, fmt.Errorf("prepare base grid: %w", err)
	}

	if err := os.MkdirAll(cfg.OutDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	writers := []report.Writer{report.NewTextWriter(out)}
	if cfg.MarkdownFile != "" {
		f, createErr := os.Create(cfg.MarkdownFile)
		if createErr != nil {
			return nil, fmt.Errorf("failed to create markdown report: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				res, err = nil, fmt.Errorf("failed to close markdown report: %w", cerr)
			}
		}()
		writers = append(writers, report.NewMarkdownWriter(f, "Grid integration study: "+net.Name))
	}

	renderer := &visual.HTML{Limits: cfg.Limits}
	if cfg.Display {
		renderer.Display = out
	}
	reporter := report.NewReporter(cfg.Limits, renderer, logger, writers...)
	solver := powerflow.NewSolver(cfg.PowerFlow, logger)

	res = &studyResult{RunID: store.NewRunID()}

	if err := solver.Run(net); err != nil {
		return nil, fmt.Errorf("solve unmodified grid: %w", err)
	}
	if res.Unmodified, err = reporter.EvaluateAndReport(unmodifiedTitle, net,
		filepath.Join(cfg.OutDir, config.UnmodifiedArtifact)); err != nil {
		return nil, err
	}

	modified := cfg.Modified
	if cfg.CoSim.Enabled {
		samples, err := newBridge(cfg.CoSim, logger).Run(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("samples", len(samples)).Ints("buses", cfg.CoSim.Buses).Msg("co-simulation samples received")
		if modified, err = scenario.ApplySamples(modified, samples, cfg.CoSim.Buses); err != nil {
			return nil, fmt.Errorf("apply co-simulation samples: %w", err)
		}
	}

	next := net.Clone()
	if err := scenario.ApplyModified(next, modified); err != nil {
		return nil, fmt.Errorf("modify grid: %w", err)
	}
	if err := solver.Run(next); err != nil {
		return nil, fmt.Errorf("solve modified grid: %w", err)
	}
	if res.Modified, err = reporter.EvaluateAndReport(modifiedTitle, next,
		filepath.Join(cfg.OutDir, config.ModifiedArtifact)); err != nil {
		return nil, err
	}

	if cfg.SaveToDB {
		if err := saveRun(ctx, cfg.DBDir, res, logger); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func saveRun(ctx context.Context, dir string, res *studyResult, logger zerolog.Logger) error {
	db, err := store.Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, c := range []struct {
		label string
		ev    evaluate.Evaluation
	}{{unmodifiedTitle, res.Unmodified}, {modifiedTitle, res.Modified}} {
		if _, err := db.SaveCycle(ctx, res.RunID, c.label, c.ev); err != nil {
			return err
		}
	}
	logger.Info().Str("run", res.RunID.String()).Str("database", db.Path()).Msg("study saved")
	return nil
}

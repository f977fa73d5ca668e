package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=…".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		GetLogger().Error("command failed", zap.Error(err))
		SyncLogger()
		os.Exit(1)
	}
	SyncLogger()
}

type rootFlags struct {
	configPath string
	runs       int
	shots      int
	live       bool
	noTUI      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "qtrials",
		Short:         "Run a quantum circuit repeatedly and score its measurement outcomes.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "INI config file")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newRunCmd(flags), newCircuitCmd(flags), newVersionCmd())
	return root
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit the circuit num_tests times and report averages and the error rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settingsFor(cmd, flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			f, _ := out.(*os.File)
			_, err = runExperiment(cmd.Context(), s, out, SelectMonitor(f, flags.noTUI))
			return err
		},
	}
	cmd.Flags().IntVarP(&flags.runs, "runs", "n", 0, "number of runs (overrides app.num_tests)")
	cmd.Flags().IntVarP(&flags.shots, "shots", "s", 0, "shots per run (overrides app.shots)")
	cmd.Flags().BoolVar(&flags.live, "live", false, "run on live hardware (overrides app.run_on_live_hardware)")
	cmd.Flags().BoolVar(&flags.noTUI, "no-tui", false, "log job status instead of showing a spinner")
	return cmd
}

func newCircuitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "circuit",
		Short: "Print the circuit diagram and its OpenQASM without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settingsFor(cmd, flags)
			if err != nil {
				return err
			}
			c, err := buildCircuit(s)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, DrawCircuit(c))
			fmt.Fprint(out, c.QASM())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// settingsFor loads the config file, applies flag overrides and starts the logger.
func settingsFor(cmd *cobra.Command, flags *rootFlags) (Settings, error) {
	cfg, err := LoadConfig(flags.configPath)
	if err != nil {
		return Settings{}, err
	}
	s, err := LoadSettings(cfg)
	if err != nil {
		return s, err
	}

	fs := cmd.Flags()
	if fs.Changed("runs") {
		s.NumTests = flags.runs
	}
	if fs.Changed("shots") {
		s.Shots = flags.shots
	}
	if fs.Changed("live") {
		s.RunOnLive = flags.live
	}
	if err := s.Validate(); err != nil {
		return s, err
	}

	InitializeLogger(s.Log, cmd.ErrOrStderr())
	GetLogger().Info("starting qtrials",
		zap.String("version", Version),
		zap.String("config", cfg.Path()),
		zap.String("backend", s.BackendName()))
	return s, nil
}

// buildCircuit returns the circuit from app.circuit_file, or the built-in
// entangling circuit over app.qubits qubits.
func buildCircuit(s Settings) (*Circuit, error) {
	if s.CircuitFile == "" {
		return BuildTestCircuit(s.Qubits)
	}
	data, err := os.ReadFile(s.CircuitFile)
	if err != nil {
		return nil, errors.Wrap(err, "read circuit file")
	}
	c, err := ParseQASM(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", s.CircuitFile)
	}
	return c, nil
}

func newBackend(s Settings) Backend {
	if s.RunOnLive {
		return NewRemoteBackend(NewIBMQClient(s.APIURL, s.APIToken, nil), s.LiveBackend)
	}
	if s.HasSeed {
		return NewSimulatorBackend(s.SimulatorBackend, s.Seed)
	}
	return NewSimulatorBackendFromClock(s.SimulatorBackend)
}

// runExperiment is the whole run: build, execute num_tests times, tabulate,
// summarise and print.
func runExperiment(ctx context.Context, s Settings, out io.Writer, mon Monitor) (*Summary, error) {
	c, err := buildCircuit(s)
	if err != nil {
		return nil, err
	}
	if c.NumCbits() == 0 || len(c.Measurements()) == 0 {
		return nil, errors.New("circuit measures nothing")
	}

	expected := s.ExpectedOutcomes
	if len(expected) == 0 {
		expected = DefaultExpectedOutcomes(c.NumCbits())
	}

	runner := &Runner{
		Backend:      newBackend(s),
		Circuit:      c,
		Shots:        s.Shots,
		PollInterval: s.PollInterval,
		Monitor:      mon,
	}
	return runTrials(ctx, runner, s.NumTests, expected, out)
}

func runTrials(ctx context.Context, runner *Runner, n int, expected []string, out io.Writer) (*Summary, error) {
	// Reject malformed expected outcomes before any job is submitted.
	numBits := runner.Circuit.NumCbits()
	if _, err := Summarize(NewTable(nil), numBits, expected, runner.Shots); err != nil {
		return nil, err
	}

	fmt.Fprintln(out, DrawCircuit(runner.Circuit))

	results, err := runner.Run(ctx, n)
	if err != nil {
		return nil, err
	}
	runs := make([]map[string]int, len(results))
	for i, r := range results {
		runs[i] = r.Counts
	}
	table := NewTable(runs)
	summary, err := Summarize(table, numBits, expected, runner.Shots)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, RenderTable(table))
	fmt.Fprintln(out, RenderSummary(summary))
	GetLogger().Info("experiment complete",
		zap.Int("trials", summary.Trials),
		zap.Int("shots", summary.Shots),
		zap.Float64("error_rate", summary.ErrorRate))
	return summary, nil
}

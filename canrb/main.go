package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"canrainbow/utils"
)

var (
	configPath string
	logLevel   string
	logFile    string

	cfg Config
	log *utils.Logger
)

type runner interface {
	Run(ctx context.Context) error
	Close()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "canrb",
		Short:         "CAN Rainbow: generate, dump and count CAN frames with DBC/CSV signal layouts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-file") {
				cfg.Log.File = logFile
			}
			if len(args) > 0 {
				cfg.Interface = args[0]
			}
			log, err = utils.NewFileLogger(cfg.Log.File, utils.ParseLevel(cfg.Log.Level), cfg.Log.Stdout)
			if err != nil {
				return errors.Wrapf(err, "cannot open log file %q", cfg.Log.File)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log", "info", "trace|debug|info|warn|error|critical")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "append log lines to this file")

	root.AddCommand(newGenCmd(), newDumpCmd(), newStatsCmd())
	return root
}

func newGenCmd() *cobra.Command {
	var (
		input       string
		random      bool
		rtr         bool
		errFrames   bool
		frequency   int64
		transmitter string
		seed        uint64
		count       uint64
	)
	cmd := &cobra.Command{
		Use:   "gen [CAN_INTERFACE]",
		Short: "Generate CAN frames with random signal values from a layout file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("input") {
				cfg.Layout = input
			}
			if f.Changed("random-frame-data") {
				cfg.Gen.RandomPayload = random
			}
			if f.Changed("rtr") {
				cfg.Gen.RTR = rtr
			}
			if f.Changed("err") {
				cfg.Gen.Err = errFrames
			}
			if f.Changed("frequency") {
				cfg.Gen.PeriodUS = frequency
			}
			if f.Changed("transmitter") {
				cfg.Gen.Transmitter = transmitter
			}
			if f.Changed("seed") {
				cfg.Gen.Seed = seed
			}
			if f.Changed("count") {
				cfg.Gen.Count = count
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return execute(cmd.Context(), func(ctx context.Context) (runner, error) {
				return NewGenRunner(ctx, cfg, log)
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "DBC or CSV layout file")
	cmd.Flags().BoolVarP(&random, "random-frame-data", "r", false, "completely random frame data, unrelated to any signal")
	cmd.Flags().BoolVar(&rtr, "rtr", false, "send random remote transmission frames")
	cmd.Flags().BoolVar(&errFrames, "err", false, "send random error frames")
	cmd.Flags().Int64VarP(&frequency, "frequency", "f", 100000, "sending period in microseconds")
	cmd.Flags().StringVar(&transmitter, "transmitter", "", "only generate messages of the given transmitter (sending node)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	cmd.Flags().Uint64Var(&count, "count", 0, "stop after this many frames (0 runs until interrupted)")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var (
		input    string
		redisURL string
		redisKey string
	)
	cmd := &cobra.Command{
		Use:   "dump [CAN_INTERFACE]",
		Short: "Dump received CAN frames, decoding signals when a layout is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("input") {
				cfg.Layout = input
			}
			if f.Changed("redis") {
				cfg.Dump.RedisURL = redisURL
			}
			if f.Changed("redis-key") {
				cfg.Dump.RedisKey = redisKey
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return execute(cmd.Context(), func(ctx context.Context) (runner, error) {
				return NewDumpRunner(ctx, cfg, log, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "DBC or CSV layout file, if not passed frame signals are not decoded")
	cmd.Flags().StringVar(&redisURL, "redis", "", "publish decoded messages to this Redis URL")
	cmd.Flags().StringVar(&redisKey, "redis-key", "canrb.decoded", "Redis list receiving decoded messages")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [CAN_INTERFACE]",
		Short: "SocketCAN message statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return execute(cmd.Context(), func(ctx context.Context) (runner, error) {
				return NewStatsRunner(ctx, cfg, log, cmd.OutOrStdout())
			})
		},
	}
}

func execute(ctx context.Context, open func(context.Context) (runner, error)) error {
	r, err := open(ctx)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		return err
	}
	defer r.Close()

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if log != nil {
		_ = log.Close()
	}
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/screa/promokey/internal/config"
	logpkg "github.com/screa/promokey/internal/logger"
	"github.com/screa/promokey/pkg/batch"
	"github.com/screa/promokey/pkg/keyenc"
	"github.com/screa/promokey/pkg/promo"
	"github.com/screa/promokey/pkg/types"
)

var (
	cfg     = config.NewConfig()
	logger  *logpkg.Logger
	logFile *os.File
)

func main() {
	err := newRootCmd().Execute()
	// PersistentPostRunE is skipped when a command fails.
	if cerr := closeLogging(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg = config.NewConfig()
	rootCmd := &cobra.Command{
		Use:   "promokey",
		Short: "Derive private keys from promo codes",
		Long: `Derives a deterministic private key from a promo code by stretching it
through millions of sequential SHA-256 rounds, then prints it as a
compressed WIF string.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return setupLogging()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLogging()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.Uint64VarP(&cfg.Target, "target", "t", 0, "Iteration count override (default: current scheduled target)")
	pf.Uint64Var(&cfg.MinTarget, "min-target", cfg.MinTarget, "Smallest target accepted")
	pf.IntVarP(&cfg.Version, "version-byte", "n", cfg.Version, "WIF network version prefix (0-255)")
	pf.StringVarP(&cfg.ScheduleFile, "schedule", "S", "", "YAML file with the published target schedule")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	pf.StringVarP(&cfg.LogFile, "log-file", "l", "", "Log file for progress tracking (default: stdout)")

	rootCmd.AddCommand(newDeriveCmd(), newBatchCmd(), newInspectCmd(), newScheduleCmd())
	return rootCmd
}

func newDeriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive [code]",
		Short: "Derive the key for a single promo code",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDerive,
	}
	cmd.Flags().StringVarP(&cfg.Code, "code", "c", "", "Promo code")
	cmd.Flags().StringVarP(&cfg.CodeFile, "code-file", "f", "", "File containing the promo code")
	cmd.Flags().BoolVarP(&cfg.Prompt, "prompt", "p", false, "Read the promo code from the terminal without echo")
	return cmd
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Derive keys for every code in a file, in parallel",
		Args:  cobra.NoArgs,
		RunE:  runBatch,
	}
	cmd.Flags().StringVarP(&cfg.CodesFile, "codes-file", "F", "", "File with one promo code per line (required)")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Number of worker goroutines")
	cmd.Flags().IntVarP(&cfg.LogInterval, "log-interval", "i", cfg.LogInterval, "Logging interval in seconds (0 disables)")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <wif>",
		Short: "Decode and verify a WIF string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := keyenc.Decode(args[0])
			if err != nil {
				return err
			}
			logger.Printf("Version: %d (0x%02x)", d.Version, d.Version)
			logger.Printf("Key: %s", hex.EncodeToString(d.Key[:]))
			logger.Printf("Checksum: %s", hex.EncodeToString(d.Checksum[:]))
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "List the published target schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cfg.LoadSchedule()
			if err != nil {
				return err
			}
			for i, t := range s.Targets() {
				marker := ""
				if i == s.Len()-1 {
					marker = " (current)"
				}
				logger.Printf("%d: %d%s", i, t, marker)
			}
			return nil
		},
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newDeriver() (*promo.Deriver, error) {
	opts, err := cfg.DeriverOptions()
	if err != nil {
		return nil, err
	}
	return promo.NewDeriver(append(opts, promo.WithLogger(logger))...)
}

func runDerive(cmd *cobra.Command, args []string) error {
	code, err := cfg.GetPromoCode(args)
	if err != nil {
		return err
	}
	d, err := newDeriver()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	logger.Printf("Deriving key: target %d, version %d", d.Target(), d.Version())
	start := time.Now()
	key, err := d.Derive(ctx, promo.NewPromoCode(code), progressObserver())
	if err != nil {
		if ctx.Err() != nil {
			logger.Println("Derivation interrupted; no key produced.")
		}
		return err
	}

	logger.Printf("Duration: %v", time.Since(start))
	printKey(key)
	return nil
}

// progressObserver logs every tenth percent, or every percent when verbose.
func progressObserver() types.ProgressFunc {
	return func(ev types.ProgressEvent) {
		if cfg.Verbose || ev.Percent%10 == 0 {
			logger.Progress(ev)
		}
	}
}

func printKey(key *types.DerivedKey) {
	logger.Printf("Key: %s", hex.EncodeToString(key.Bytes[:]))
	logger.Printf("WIF: %s", key.WIF)
}

func runBatch(cmd *cobra.Command, args []string) error {
	codes, err := cfg.GetCodes()
	if err != nil {
		return err
	}
	d, err := newDeriver()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	logger.Printf("Deriving %d codes with %d workers, target %d...", len(codes), cfg.Workers, d.Target())
	runner := batch.NewRunner(batch.Config{
		Workers:     cfg.Workers,
		LogInterval: time.Duration(cfg.LogInterval) * time.Second,
	}, d, logger)

	failed := 0
	for _, res := range runner.Run(ctx, codes) {
		if res.Err != nil {
			failed++
			logger.Printf("#%d %q: %v", res.Index, res.Code, res.Err)
			continue
		}
		logger.Printf("#%d %q: %s (%v)", res.Index, res.Code, res.Key.WIF, res.Duration)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d codes failed", failed, len(codes))
	}
	return nil
}

func setupLogging() error {
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = file
		logger = logpkg.NewWriter(file)
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		logger = logpkg.New()
		logger.SetFlags(log.LstdFlags)
	}
	logger.SetVerbose(cfg.Verbose)
	return nil
}

// closeLogging releases the --log-file handle, if any
func closeLogging() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

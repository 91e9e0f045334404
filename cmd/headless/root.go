package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caffeineduck/headless/executor"
	"github.com/caffeineduck/headless/hostfunc"
	"github.com/caffeineduck/headless/internal/config"
	"github.com/caffeineduck/headless/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is the state shared by every command once flags are parsed.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// exitError carries a guest exit code out of a command.
type exitError struct{ code uint32 }

func (e exitError) Error() string { return fmt.Sprintf("module exited with code %d", e.code) }

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default(), logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "headless",
		Short: "Run browser-targeted WebAssembly modules without a browser",
		Long: `headless - Host a WebAssembly module built for a browser in a plain process.

The module gets inert window, document and screen stand-ins, a line-based
stdin queue it can poll, and a persistent directory mounted at /persist.
Data written there lands in <module>-data next to the module file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default: ~/.config/headless/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console, json")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable compilation cache")
	rootCmd.PersistentFlags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")

	rootCmd.AddCommand(newRunCmd(a), newConsoleCmd(a), newSmokeCmd(a))
	return rootCmd
}

// Execute runs the CLI and exits with the module's exit code on failure.
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(int(exit.code))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load reads the config file and lets flags override it.
func (a *app) load(cmd *cobra.Command) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("no-cache") {
		cfg.NoCache, _ = flags.GetBool("no-cache")
	}
	if flags.Changed("memory") {
		s, _ := flags.GetString("memory")
		pages, err := parseMemoryLimit(s)
		if err != nil {
			return err
		}
		cfg.Memory = pages
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) newExecutor(precompile ...executor.Module) (*executor.Executor, error) {
	var opts []executor.ExecutorOption
	if !a.cfg.NoCache {
		opts = append(opts, executor.WithDiskCache(a.cfg.CacheDir))
	}
	if a.cfg.Memory > 0 {
		opts = append(opts, executor.WithMemoryLimit(a.cfg.Memory))
	}
	if len(precompile) > 0 {
		opts = append(opts, executor.WithPrecompile(precompile...))
	}
	return executor.New(hostfunc.NewRegistry(), opts...)
}

func parseMemoryLimit(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return 0, nil
	case "1mb":
		return executor.MemoryLimit1MB, nil
	case "16mb":
		return executor.MemoryLimit16MB, nil
	case "64mb":
		return executor.MemoryLimit64MB, nil
	case "256mb":
		return executor.MemoryLimit256MB, nil
	case "1gb":
		return executor.MemoryLimit1GB, nil
	default:
		return 0, fmt.Errorf("invalid memory limit %q: use 1mb, 16mb, 64mb, 256mb or 1gb", s)
	}
}

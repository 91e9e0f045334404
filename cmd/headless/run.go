package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caffeineduck/headless/executor"
	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/persist"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <module.wasm> [-- args...]",
		Short: "Run a module to completion",
		Long: `Run a command module. Arguments after the module path are passed to it.

Standard input is bridged line by line; the module polls for lines with the
stdin_poll host call. Persistent data is stored next to the module unless
--data-dir is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}
	addModuleFlags(cmd)
	return cmd
}

func addModuleFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "Execution timeout (0 means none)")
	cmd.Flags().StringSlice("allow-host", nil, "Allow HTTP to host (repeatable)")
	cmd.Flags().String("data-dir", "", "Persistent data directory (default: <module>-data)")
	cmd.Flags().String("store", "", "Persistent store: host, local (default: by environment)")
	cmd.Flags().String("search", "", "Page search string seen by the loader, e.g. ?a&b")
	cmd.Flags().StringSlice("env", nil, "Guest environment variable KEY=VALUE (repeatable)")

	// Security limits
	cmd.Flags().Int("http-max-url", 8192, "Max HTTP URL length")
	cmd.Flags().Int64("http-max-body", 64<<20, "Max HTTP response body size")
}

// buildRunOpts merges command flags over the config file.
func (a *app) buildRunOpts(cmd *cobra.Command) ([]executor.Option, error) {
	flags := cmd.Flags()

	timeout := a.cfg.Timeout
	if flags.Changed("timeout") {
		timeout, _ = flags.GetDuration("timeout")
	}
	allowedHosts := a.cfg.AllowHosts
	if flags.Changed("allow-host") {
		allowedHosts, _ = flags.GetStringSlice("allow-host")
	}
	dataDir := a.cfg.Persist.DataDir
	if flags.Changed("data-dir") {
		dataDir, _ = flags.GetString("data-dir")
	}
	store := a.cfg.Persist.Store
	if flags.Changed("store") {
		store, _ = flags.GetString("store")
	}
	envVars, _ := flags.GetStringSlice("env")
	httpMaxURL, _ := flags.GetInt("http-max-url")
	httpMaxBody, _ := flags.GetInt64("http-max-body")

	opts := []executor.Option{executor.WithTimeout(timeout)}

	if len(allowedHosts) > 0 {
		opts = append(opts,
			executor.WithAllowedHosts(allowedHosts),
			executor.WithHTTPMaxURLLength(httpMaxURL),
			executor.WithHTTPMaxBodySize(httpMaxBody),
		)
	}

	var persistOpts []persist.Option
	if dataDir != "" {
		persistOpts = append(persistOpts, persist.WithDataDir(dataDir))
	}
	if store != "" {
		kind, err := persist.ParseStoreKind(store)
		if err != nil {
			return nil, err
		}
		persistOpts = append(persistOpts, persist.WithStoreKind(kind))
	}
	if d := a.cfg.Persist.Debounce; d > 0 {
		persistOpts = append(persistOpts, persist.WithLocalDebounce(d))
	}
	opts = append(opts, executor.WithPersist(persistOpts...))

	for _, kv := range envVars {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid env %q (expected KEY=VALUE)", kv)
		}
		opts = append(opts, executor.WithEnv(k, v))
	}

	return opts, nil
}

// newEnv describes the process the module runs in.
func (a *app) newEnv(cmd *cobra.Command, modulePath string, args []string, stdin io.Reader) *hostenv.Environment {
	search, _ := cmd.Flags().GetString("search")
	return hostenv.Process(
		hostenv.WithArgs(args...),
		hostenv.WithLocation(modulePath),
		hostenv.WithSearch(search),
		hostenv.WithStdin(stdin),
		hostenv.WithLogger(a.logger),
	)
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	mod, err := executor.LoadFile(args[0])
	if err != nil {
		return err
	}
	opts, err := a.buildRunOpts(cmd)
	if err != nil {
		return err
	}

	exec, err := a.newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	env := a.newEnv(cmd, mod.Path(), args[1:], cmd.InOrStdin())
	env.OnUnload(cancel)
	stop := env.BindUnloadSignal()
	defer stop()

	start := time.Now()
	result := exec.Run(ctx, env, mod, append(opts,
		executor.WithStdout(cmd.OutOrStdout()),
		executor.WithStderr(cmd.ErrOrStderr()),
	)...)
	a.logger.Debug().Dur("took", time.Since(start)).Uint32("exit", result.ExitCode).Msg("module finished")

	if result.ExitCode != 0 {
		return exitError{code: result.ExitCode}
	}
	return result.Error
}

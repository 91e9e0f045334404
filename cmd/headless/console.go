package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caffeineduck/headless/executor"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func newConsoleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console <module.wasm> [-- args...]",
		Short: "Run a module with an interactive input line",
		Long: `Run a command module and feed it lines typed at a prompt.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)

Each line entered is queued for the module's stdin_poll host call. Press
Ctrl+D to end input; the module keeps running until it exits.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.console(cmd, args)
		},
	}
	addModuleFlags(cmd)
	cmd.Flags().String("history", "", "History file path (default: ~/.headless_history)")
	return cmd
}

func (a *app) console(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".headless_history")
	}

	mod, err := executor.LoadFile(args[0])
	if err != nil {
		return err
	}
	opts, err := a.buildRunOpts(cmd)
	if err != nil {
		return err
	}

	exec, err := a.newExecutor(mod)
	if err != nil {
		return err
	}
	defer exec.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	input, feed := io.Pipe()
	env := a.newEnv(cmd, mod.Path(), args[1:], input)
	env.OnUnload(cancel)
	stop := env.BindUnloadSignal()
	defer stop()

	session, err := exec.Start(ctx, env, mod, append(opts,
		executor.WithStdout(rl.Stdout()),
		executor.WithStderr(rl.Stderr()),
	)...)
	if err != nil {
		return err
	}

	go func() {
		<-session.Done()
		rl.Close()
	}()

	fmt.Fprintf(rl.Stderr(), "%s console (Ctrl+D to end input)\n", mod.Name())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			break
		}
		if _, err := io.WriteString(feed, line+"\n"); err != nil {
			break
		}
	}
	feed.Close()

	result := session.Wait()
	if result.ExitCode != 0 {
		return exitError{code: result.ExitCode}
	}
	return result.Error
}

package main

import (
	"net/url"

	"github.com/caffeineduck/headless/executor"
	"github.com/caffeineduck/headless/hostfunc"
	"github.com/caffeineduck/headless/smoke"
	"github.com/spf13/cobra"
)

func newSmokeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke <calculator.wasm>",
		Short: "Score a fixed beatmap with a calculator module",
		Long: `Load a calculator module, print its algorithm version, fetch a fixed
beatmap and score one play against it.

The module must export algorithm_version, malloc, free, object_new,
object_calculate and object_delete.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.smoke(cmd, args)
		},
	}
	cmd.Flags().String("url", smoke.BeatmapURL, "Beatmap URL")
	cmd.Flags().MarkHidden("url")
	return cmd
}

func (a *app) smoke(cmd *cobra.Command, args []string) error {
	beatmapURL, _ := cmd.Flags().GetString("url")
	u, err := url.Parse(beatmapURL)
	if err != nil {
		return err
	}

	mod, err := executor.LoadFile(args[0])
	if err != nil {
		return err
	}

	exec, err := a.newExecutor()
	if err != nil {
		return err
	}
	defer exec.Close()

	ctx := cmd.Context()
	instance, err := exec.Instantiate(ctx, mod)
	if err != nil {
		return err
	}
	defer instance.Close(ctx)

	target, err := smoke.NewWasmTarget(instance)
	if err != nil {
		return err
	}

	return smoke.Run(ctx, smoke.Config{
		Target:  target,
		Fetcher: hostfunc.NewHTTP(hostfunc.HTTPConfig{AllowedHosts: []string{u.Hostname()}}),
		Out:     cmd.OutOrStdout(),
		ErrOut:  cmd.ErrOrStderr(),
		Logger:  a.logger,
		URL:     beatmapURL,
	})
}

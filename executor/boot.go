package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/caffeineduck/headless/globals"
	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/hostfunc"
	"github.com/caffeineduck/headless/modconf"
	"github.com/caffeineduck/headless/persist"
	"github.com/caffeineduck/headless/stdinbridge"
	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
)

// launch is everything the host prepared before a module's entry point runs.
type launch struct {
	env      *hostenv.Environment
	config   *modconf.Config
	registry *hostfunc.Registry
	surface  *globals.Surface
	bridge   *stdinbridge.Bridge
	persist  *persist.Manager
	mounts   *persist.MountTable
	args     []string
	logger   zerolog.Logger
}

// boot composes start-up for mod. It returns once every pre-run hook has run
// and no run dependency is pending.
func (e *Executor) boot(ctx context.Context, env *hostenv.Environment, mod Module, cfg runConfig) (*launch, error) {
	l := &launch{
		env:      env,
		config:   modconf.New(env.Args()...),
		registry: e.registry.Clone(),
		mounts:   persist.NewMountTable(),
		logger:   env.Logger().With().Str("module", mod.Name()).Logger(),
	}

	l.registry.Register("time_now", func(ctx context.Context, args map[string]any) (any, error) {
		return float64(time.Now().UnixNano()) / 1e9, nil
	})

	if len(cfg.allowedHosts) > 0 {
		httpHandler := hostfunc.NewHTTP(hostfunc.HTTPConfig{
			AllowedHosts:   cfg.allowedHosts,
			MaxURLLength:   cfg.httpMaxURLLength,
			MaxBodySize:    cfg.httpMaxBodySize,
			RequestTimeout: cfg.httpTimeout,
		})
		l.registry.Register("http_request", httpHandler.Request)
	}

	l.surface = globals.Install(env, l.config)
	if l.surface != nil {
		globals.Register(l.registry, l.surface)
	}

	l.bridge = stdinbridge.Attach(env)
	if l.bridge != nil {
		l.registry.Register("stdin_poll", l.bridge.Poll)
	}

	l.persist = persist.NewManager(env, l.config, l.mounts, cfg.persistOpts...)
	l.persist.Register(l.registry)
	l.config.AddPreRun(l.persist.Hook())

	if env.Search() != "" {
		l.config.AddPreRun(globals.SearchArgsHook(env, l.config))
	}

	if err := l.config.RunPreRun(ctx); err != nil {
		l.close(context.WithoutCancel(ctx))
		return nil, err
	}
	if err := l.config.WaitRunDependencies(ctx); err != nil {
		l.close(context.WithoutCancel(ctx))
		return nil, err
	}
	if err := l.persist.WaitReady(ctx); err != nil {
		l.close(context.WithoutCancel(ctx))
		return nil, err
	}

	l.args = append([]string{mod.Name()}, l.config.Args().Get()...)
	l.logger.Debug().
		Strs("args", l.args).
		Str("kind", env.Kind().String()).
		Msg("start-up complete")
	return l, nil
}

// fsConfig maps the mount table onto the guest filesystem.
func (l *launch) fsConfig() wazero.FSConfig {
	cfg := wazero.NewFSConfig()
	for _, m := range l.mounts.Mounts() {
		cfg = cfg.WithDirMount(m.HostDir, m.GuestPath)
	}
	return cfg
}

// flush is the guest's fire-and-forget request to persist storage.
func (l *launch) flush(tag string) {
	go func() {
		if err := l.persist.Flush(context.Background()); err != nil {
			l.logger.Error().Err(err).Str("tag", tag).Msg("flush failed")
		}
	}()
}

func (l *launch) close(ctx context.Context) error {
	if err := l.persist.Close(ctx); err != nil {
		return fmt.Errorf("close persistent storage: %w", err)
	}
	return nil
}

// Package smoke loads a calculator module and runs one computation against
// a fixed remote beatmap.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// BeatmapURL is the fixed resource the smoke test computes against.
const BeatmapURL = "https://osu.ppy.sh/osu/3337690"

// Inputs are the named score statistics passed to a computation.
type Inputs struct {
	Num300s   int   `json:"num300s"`
	Num100s   int   `json:"num100s"`
	Num50s    int   `json:"num50s"`
	NumMisses int   `json:"numMisses"`
	Score     int64 `json:"score"`
	ComboMax  int   `json:"comboMax"`
}

// DefaultInputs is the play the smoke test scores.
var DefaultInputs = Inputs{
	Num300s:   3027,
	Num100s:   115,
	Num50s:    4,
	NumMisses: 11,
	Score:     300461780,
	ComboMax:  3483,
}

var ErrConstruct = errors.New("module rejected beatmap")

// Target is a loaded calculator module.
type Target interface {
	Version(ctx context.Context) (int, error)
	New(ctx context.Context, data []byte) (Object, error)
}

// Object is an in-module beatmap. It must be deleted exactly once.
type Object interface {
	Calculate(ctx context.Context, in Inputs) (float64, error)
	Delete(ctx context.Context) error
}

// Fetcher retrieves a remote resource.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Config wires a smoke run.
type Config struct {
	Target  Target
	Fetcher Fetcher
	Out     io.Writer
	ErrOut  io.Writer
	Logger  zerolog.Logger
	URL     string
	Inputs  *Inputs
}

// Run prints the module's algorithm version, then fetches the beatmap,
// scores it and releases it. A failed computation is reported on ErrOut
// and does not fail the run; the object is released either way.
func Run(ctx context.Context, cfg Config) error {
	url := cfg.URL
	if url == "" {
		url = BeatmapURL
	}
	in := DefaultInputs
	if cfg.Inputs != nil {
		in = *cfg.Inputs
	}

	version, err := cfg.Target.Version(ctx)
	if err != nil {
		return fmt.Errorf("query version: %w", err)
	}
	fmt.Fprintln(cfg.Out, "pp version:", version)

	data, err := cfg.Fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch beatmap: %w", err)
	}
	cfg.Logger.Debug().Str("url", url).Int("bytes", len(data)).Msg("beatmap fetched")

	obj, err := cfg.Target.New(ctx, data)
	if err != nil {
		return fmt.Errorf("load beatmap: %w", err)
	}
	defer func() {
		if err := obj.Delete(ctx); err != nil {
			cfg.Logger.Error().Err(err).Msg("release beatmap")
		}
	}()

	pp, err := obj.Calculate(ctx, in)
	if err != nil {
		cfg.Logger.Error().Err(err).Interface("inputs", in).Msg("calculation failed")
		fmt.Fprintln(cfg.ErrOut, "failed to calc pp:", err)
		return nil
	}
	fmt.Fprintln(cfg.Out, "pp:", pp)
	return nil
}

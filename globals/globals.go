// Package globals synthesizes the window, document and screen surfaces a
// browser-targeted module touches during start-up, for hosts that have no
// browser. The stand-ins are inert: lookups find nothing, event subscriptions
// are dropped, and the viewport is a fixed 1280x720 at a pixel ratio of 1.
package globals

import (
	"context"
	"net/url"
	"strings"

	"github.com/caffeineduck/headless/hostenv"
	"github.com/caffeineduck/headless/modconf"
)

// Nominal viewport of the synthesized surface.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 720
	DefaultPixelRatio = 1.0
)

// ArgsOwner identifies the argument override installed by [Install].
const ArgsOwner = "globals"

// NoElement is returned by element lookups that find nothing.
var NoElement *Element

// Location mirrors window.location.
type Location struct {
	Search   string `json:"search"`
	Href     string `json:"href"`
	Hostname string `json:"hostname"`
}

// Window is the windowing stand-in.
type Window struct {
	Location         Location `json:"location"`
	InnerWidth       int      `json:"innerWidth"`
	InnerHeight      int      `json:"innerHeight"`
	DevicePixelRatio float64  `json:"devicePixelRatio"`
}

// AddEventListener and RemoveEventListener accept and drop subscriptions;
// no events fire without a browser.
func (w *Window) AddEventListener(event string, fn func())    {}
func (w *Window) RemoveEventListener(event string, fn func()) {}

// Style is an element style record.
type Style map[string]string

// Element is an inert placeholder element.
type Element struct {
	Tag   string `json:"tag"`
	Style Style  `json:"style"`
}

// Body is the document body stand-in.
type Body struct{}

// AppendChild discards child.
func (b *Body) AppendChild(child *Element) {}

// Document is the document stand-in.
type Document struct {
	URL  string `json:"URL"`
	Body *Body  `json:"-"`
}

// CreateElement returns a new element with an empty style.
func (d *Document) CreateElement(tag string) *Element {
	return &Element{Tag: tag, Style: Style{}}
}

// GetElementByID always returns NoElement.
func (d *Document) GetElementByID(id string) *Element { return NoElement }

// QuerySelector always returns NoElement.
func (d *Document) QuerySelector(selector string) *Element { return NoElement }

// AddEventListener and RemoveEventListener are no-ops.
func (d *Document) AddEventListener(event string, fn func())    {}
func (d *Document) RemoveEventListener(event string, fn func()) {}

// Screen is the screen stand-in.
type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Surface bundles the three stand-ins. It is never mutated after creation.
type Surface struct {
	Window   *Window
	Document *Document
	Screen   *Screen
}

// New builds the synthetic surface.
func New() *Surface {
	return &Surface{
		Window: &Window{
			InnerWidth:       DefaultWidth,
			InnerHeight:      DefaultHeight,
			DevicePixelRatio: DefaultPixelRatio,
		},
		Document: &Document{Body: &Body{}},
		Screen:   &Screen{Width: DefaultWidth, Height: DefaultHeight},
	}
}

// Install builds the surface for a headless environment and overrides the
// argument property of cfg so it always reads the host's positional
// arguments and discards writes. It returns nil for browser-like
// environments, leaving cfg untouched.
//
// The override is defined immediately and re-asserted by a pre-run hook at
// [modconf.OrderArgsOverride], after any hook that rewrites arguments.
// Failures are logged, never fatal.
func Install(env *hostenv.Environment, cfg *modconf.Config) *Surface {
	if env.IsBrowserLike() {
		return nil
	}

	logger := env.Logger().With().Str("component", "globals").Logger()
	s := New()

	override := modconf.Accessor{
		Get: env.Args,
		Set: func([]string) {},
	}
	if err := cfg.Args().Define(ArgsOwner, override); err != nil {
		logger.Warn().Err(err).Msg("argument override not installed")
		return s
	}

	cfg.AddPreRun(modconf.Hook{
		Name:  "args-override",
		Order: modconf.OrderArgsOverride,
		Run: func(context.Context) error {
			if err := cfg.Args().Define(ArgsOwner, override); err != nil {
				logger.Warn().Err(err).Msg("argument override lost")
			}
			return nil
		},
	})

	logger.Debug().
		Int("width", DefaultWidth).
		Int("height", DefaultHeight).
		Strs("args", env.Args()).
		Msg("synthetic globals installed")
	return s
}

// SearchArgs splits a page search string such as "?a&b%20c" into arguments.
func SearchArgs(search string) []string {
	search = strings.TrimPrefix(search, "?")
	if search == "" {
		return nil
	}

	parts := strings.Split(search, "&")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		if v, err := url.QueryUnescape(p); err == nil {
			p = v
		}
		args = append(args, p)
	}
	return args
}

// SearchArgsHook returns the loader step that replaces the module arguments
// with those found in the page search string. Under a headless environment
// the argument override discards its write.
func SearchArgsHook(env *hostenv.Environment, cfg *modconf.Config) modconf.Hook {
	return modconf.Hook{
		Name:  "search-args",
		Order: modconf.OrderSearchArgs,
		Run: func(context.Context) error {
			cfg.Args().Set(SearchArgs(env.Search()))
			return nil
		},
	}
}

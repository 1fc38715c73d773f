// Package browser runs the probe inside a real browser page over the DevTools
// protocol.
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/K0NGR3SS/ghostprobe/internal/host"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const DefaultPageURL = "about:blank"

type Config struct {
	// DevToolsURL is the debugger websocket of a running browser. When empty
	// and Launch is set, a local headless browser is started.
	DevToolsURL string
	Launch      bool
	PageURL     string
	Logger      *zap.Logger
}

// Runtime evaluates snippets in one page. On an attached browser the page
// lives in its own incognito context so Close never touches the user's
// windows.
type Runtime struct {
	config   Config
	logger   *zap.Logger
	browser  *rod.Browser
	session  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	mu       sync.Mutex
}

// Connect attaches to (or launches) a browser and opens the probe page.
func Connect(ctx context.Context, config Config) (*Runtime, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PageURL == "" {
		config.PageURL = DefaultPageURL
	}

	r := &Runtime{config: config, logger: logger}

	controlURL := config.DevToolsURL
	if controlURL == "" {
		if !config.Launch {
			return nil, fmt.Errorf("no devtools url and launching is disabled")
		}
		r.launcher = launcher.New().Headless(true)
		url, err := r.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		r.cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	r.browser = browser
	r.session = browser
	if r.launcher == nil {
		incognito, err := browser.Incognito()
		if err != nil {
			return nil, fmt.Errorf("create browser context: %w", err)
		}
		r.session = incognito
	}

	page, err := r.session.Page(proto.TargetCreateTarget{URL: config.PageURL})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("open %s: %w", config.PageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		r.Close()
		return nil, fmt.Errorf("load %s: %w", config.PageURL, err)
	}
	r.page = page

	logger.Info("browser page ready", zap.String("url", config.PageURL), zap.Bool("launched", r.launcher != nil))
	return r, nil
}

// NewHost is Connect wrapped as a probe host.
func NewHost(ctx context.Context, config Config) (*host.Host, *Runtime, error) {
	rt, err := Connect(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	return host.New(rt), rt, nil
}

func (r *Runtime) Name() string { return "browser" }

func (r *Runtime) Call(ctx context.Context, s host.Snippet, args ...any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           string(s),
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value.Nil() {
		return nil, nil
	}

	switch v := res.Value.Val().(type) {
	case bool, float64, string:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("unsupported result type %T", v)
	}
}

// Close closes the page. A launched browser is shut down and killed; on an
// attached browser only the incognito context is disposed.
func (r *Runtime) Close() {
	if r.page != nil {
		if err := r.page.Close(); err != nil {
			r.logger.Debug("close page", zap.Error(err))
		}
	}
	if r.session != nil {
		// For a launched browser the session is the browser itself.
		if err := r.session.Close(); err != nil {
			r.logger.Debug("close browser", zap.Error(err))
		}
	}
	r.cleanup()
}

func (r *Runtime) cleanup() {
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
	}
}

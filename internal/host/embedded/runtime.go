// Package embedded runs the probe inside an in-process goja VM.
package embedded

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/K0NGR3SS/ghostprobe/internal/host"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// Config controls the VM and the identity it presents.
type Config struct {
	// Timeout bounds every single snippet call.
	Timeout time.Duration

	UserAgent   string
	Firmware    string
	FirmwareSet bool

	// Modules backs the WebAssembly global. Without it the global is absent.
	Modules ModuleEngine

	Logger *zap.Logger
}

// Runtime wraps a goja VM. goja is not safe for concurrent use, so every call
// holds the lock for its whole duration.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	logger *zap.Logger
	mu     sync.Mutex

	cache map[host.Snippet]goja.Callable
}

// New creates a runtime with its globals installed.
func New(config Config) (*Runtime, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runtime{
		vm:     goja.New(),
		config: config,
		logger: logger,
		cache:  make(map[host.Snippet]goja.Callable),
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewHost is New wrapped as a probe host.
func NewHost(config Config) (*host.Host, error) {
	rt, err := New(config)
	if err != nil {
		return nil, err
	}
	return host.New(rt), nil
}

func (r *Runtime) Name() string { return "embedded" }

// Call compiles s on first use and invokes it with args.
func (r *Runtime) Call(ctx context.Context, s host.Snippet, args ...any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fn, err := r.compile(s)
	if err != nil {
		return nil, err
	}

	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = r.vm.ToValue(a)
	}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()
	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-stop:
		}
	}()

	val, err := fn(goja.Undefined(), values...)
	close(stop)
	<-exited
	r.vm.ClearInterrupt()

	if err != nil {
		return nil, err
	}
	return exportValue(val)
}

func (r *Runtime) compile(s host.Snippet) (goja.Callable, error) {
	if fn, ok := r.cache[s]; ok {
		return fn, nil
	}
	val, err := r.vm.RunString("(" + string(s) + ")")
	if err != nil {
		return nil, fmt.Errorf("compile snippet: %w", err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, fmt.Errorf("snippet is not a function")
	}
	r.cache[s] = fn
	return fn, nil
}

func (r *Runtime) setupGlobals() error {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())

	navigator := r.vm.NewObject()
	if err := navigator.Set("userAgent", r.config.UserAgent); err != nil {
		return err
	}
	if err := r.vm.Set("navigator", navigator); err != nil {
		return err
	}

	if r.config.FirmwareSet {
		if err := r.vm.Set("FW_VERSION", r.config.Firmware); err != nil {
			return err
		}
	}

	if r.config.Modules != nil {
		if err := r.installWebAssembly(); err != nil {
			return fmt.Errorf("install WebAssembly: %w", err)
		}
		r.logger.Debug("WebAssembly global installed")
	}
	return nil
}

// exportValue converts a goja value to nil, bool, float64 or string.
func exportValue(val goja.Value) (any, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	switch v := val.Export().(type) {
	case bool:
		return v, nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported result type %T", v)
	}
}

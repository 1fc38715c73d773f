//go:build js && wasm

package device

import (
	"context"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/K0NGR3SS/ghostprobe/internal/host"
)

// Runtime compiles snippets with the page's Function constructor.
type Runtime struct {
	mu    sync.Mutex
	cache map[host.Snippet]js.Value
}

func New() *Runtime {
	return &Runtime{cache: make(map[host.Snippet]js.Value)}
}

func NewHost() *host.Host {
	return host.New(New())
}

func (r *Runtime) Name() string { return "device" }

func (r *Runtime) Call(ctx context.Context, s host.Snippet, args ...any) (res any, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Exceptions thrown by the page surface as js.Error panics.
	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			err = fmt.Errorf("%v", rec)
		}
	}()

	fn, ok := r.cache[s]
	if !ok {
		fn = js.Global().Get("Function").New("return (" + string(s) + ");").Invoke()
		r.cache[s] = fn
	}
	return export(fn.Invoke(args...))
}

func export(v js.Value) (any, error) {
	switch v.Type() {
	case js.TypeUndefined, js.TypeNull:
		return nil, nil
	case js.TypeBoolean:
		return v.Bool(), nil
	case js.TypeNumber:
		return v.Float(), nil
	case js.TypeString:
		return v.String(), nil
	}
	return nil, fmt.Errorf("unsupported result type %s", v.Type())
}

//go:build !cgo

package wasmbridge

import (
	"errors"

	"github.com/K0NGR3SS/ghostprobe/internal/host/embedded"
)

var ErrUnavailable = errors.New("wasmer engine unavailable in this build")

type Engine struct{}

func New() (*Engine, error) {
	return nil, ErrUnavailable
}

func (e *Engine) Compile([]byte) (embedded.CompiledModule, error) {
	return nil, ErrUnavailable
}

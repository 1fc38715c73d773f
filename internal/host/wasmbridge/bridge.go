//go:build cgo

// Package wasmbridge backs the embedded host's WebAssembly global with wasmer.
package wasmbridge

import (
	"errors"
	"fmt"
	"math"

	"github.com/K0NGR3SS/ghostprobe/internal/host/embedded"
	"github.com/wasmerio/wasmer-go/wasmer"
)

// ErrUnavailable is returned when the binary was built without cgo.
var ErrUnavailable = errors.New("wasmer engine unavailable in this build")

// Engine compiles modules into a single wasmer store.
type Engine struct {
	store *wasmer.Store
}

func New() (*Engine, error) {
	engine := wasmer.NewEngine()
	return &Engine{store: wasmer.NewStore(engine)}, nil
}

func (e *Engine) Compile(code []byte) (embedded.CompiledModule, error) {
	module, err := wasmer.NewModule(e.store, code)
	if err != nil {
		return nil, err
	}
	return &compiledModule{module: module}, nil
}

type compiledModule struct {
	module *wasmer.Module
}

func (m *compiledModule) Instantiate() (embedded.ModuleInstance, error) {
	instance, err := wasmer.NewInstance(m.module, wasmer.NewImportObject())
	if err != nil {
		return nil, err
	}

	inst := &moduleInstance{instance: instance, params: make(map[string][]wasmer.ValueKind)}
	for _, export := range m.module.Exports() {
		if export.Type().Kind() != wasmer.FUNCTION {
			continue
		}
		var kinds []wasmer.ValueKind
		for _, p := range export.Type().IntoFunctionType().Params() {
			kinds = append(kinds, p.Kind())
		}
		inst.names = append(inst.names, export.Name())
		inst.params[export.Name()] = kinds
	}
	return inst, nil
}

type moduleInstance struct {
	instance *wasmer.Instance
	names    []string
	params   map[string][]wasmer.ValueKind
}

func (i *moduleInstance) Functions() []string {
	return append([]string(nil), i.names...)
}

func (i *moduleInstance) Call(name string, args ...float64) (any, error) {
	kinds, ok := i.params[name]
	if !ok {
		return nil, fmt.Errorf("no exported function %q", name)
	}
	fn, err := i.instance.Exports.GetFunction(name)
	if err != nil {
		return nil, err
	}

	in := make([]any, len(kinds))
	for n, kind := range kinds {
		var v float64
		if n < len(args) {
			v = args[n]
		}
		conv, err := convert(kind, v)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", name, n, err)
		}
		in[n] = conv
	}

	res, err := fn(in...)
	if err != nil {
		return nil, err
	}
	switch r := res.(type) {
	case nil:
		return nil, nil
	case int32:
		return float64(r), nil
	case int64:
		return float64(r), nil
	case float32:
		return float64(r), nil
	case float64:
		return r, nil
	}
	return nil, fmt.Errorf("unsupported result type %T", res)
}

// convert applies JavaScript ToInt32 style wrapping for integer kinds.
func convert(kind wasmer.ValueKind, v float64) (any, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	switch kind {
	case wasmer.I32:
		return int32(uint32(int64(math.Trunc(v)))), nil
	case wasmer.I64:
		return int64(math.Trunc(v)), nil
	case wasmer.F32:
		return float32(v), nil
	case wasmer.F64:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported parameter kind %v", kind)
}

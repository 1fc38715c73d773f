package embedded

import (
	"fmt"

	"github.com/dop251/goja"
)

// ModuleEngine compiles WebAssembly binaries for the VM's WebAssembly global.
type ModuleEngine interface {
	Compile(code []byte) (CompiledModule, error)
}

type CompiledModule interface {
	Instantiate() (ModuleInstance, error)
}

// ModuleInstance exposes the exported functions of an instantiated module.
// Arguments arrive as JavaScript numbers and are converted by the engine.
type ModuleInstance interface {
	Functions() []string
	Call(name string, args ...float64) (any, error)
}

const moduleKey = "__module"

// installWebAssembly adds a WebAssembly global with synchronous Module and
// Instance constructors.
func (r *Runtime) installWebAssembly() error {
	vm := r.vm
	engine := r.config.Modules

	wasm := vm.NewObject()

	module := func(call goja.ConstructorCall) *goja.Object {
		code, err := bytesArg(vm, call.Argument(0))
		if err != nil {
			panic(vm.NewTypeError("WebAssembly.Module: %v", err))
		}
		m, err := engine.Compile(code)
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("CompileError: %w", err)))
		}
		if err := call.This.Set(moduleKey, m); err != nil {
			panic(vm.NewGoError(err))
		}
		return nil
	}

	instance := func(call goja.ConstructorCall) *goja.Object {
		obj, ok := call.Argument(0).(*goja.Object)
		if !ok {
			panic(vm.NewTypeError("WebAssembly.Instance: argument must be a WebAssembly.Module"))
		}
		m, ok := obj.Get(moduleKey).Export().(CompiledModule)
		if !ok {
			panic(vm.NewTypeError("WebAssembly.Instance: argument must be a WebAssembly.Module"))
		}
		inst, err := m.Instantiate()
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("LinkError: %w", err)))
		}

		exports := vm.NewObject()
		for _, name := range inst.Functions() {
			if err := exports.Set(name, exportedFunc(vm, inst, name)); err != nil {
				panic(vm.NewGoError(err))
			}
		}
		if err := call.This.Set("exports", exports); err != nil {
			panic(vm.NewGoError(err))
		}
		return nil
	}

	if err := wasm.Set("Module", module); err != nil {
		return err
	}
	if err := wasm.Set("Instance", instance); err != nil {
		return err
	}
	return vm.Set("WebAssembly", wasm)
}

func exportedFunc(vm *goja.Runtime, inst ModuleInstance, name string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]float64, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.ToFloat()
		}
		res, err := inst.Call(name, args...)
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("RuntimeError: %w", err)))
		}
		if res == nil {
			return goja.Undefined()
		}
		return vm.ToValue(res)
	}
}

// bytesArg reads any array-like value of byte-sized integers.
func bytesArg(vm *goja.Runtime, v goja.Value) ([]byte, error) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("expected a buffer source")
	}
	n := obj.Get("length")
	if n == nil || goja.IsUndefined(n) {
		return nil, fmt.Errorf("expected a buffer source")
	}
	size := n.ToInteger()
	if size < 0 {
		return nil, fmt.Errorf("invalid length %d", size)
	}
	out := make([]byte, size)
	for i := int64(0); i < size; i++ {
		out[i] = byte(obj.Get(fmt.Sprint(i)).ToInteger())
	}
	return out, nil
}

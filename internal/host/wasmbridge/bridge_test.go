//go:build cgo

package wasmbridge

import (
	"context"
	"testing"

	"github.com/K0NGR3SS/ghostprobe/internal/host/embedded"
	"github.com/K0NGR3SS/ghostprobe/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-go/wasmer"
)

func TestEngineAdd(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)

	mod, err := engine.Compile(probe.AddModule)
	require.NoError(t, err)
	inst, err := mod.Instantiate()
	require.NoError(t, err)

	assert.Equal(t, []string{probe.AddExport}, inst.Functions())

	sum, err := inst.Call(probe.AddExport, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, float64(5), sum)

	wrapped, err := inst.Call(probe.AddExport, 2147483647, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(-2147483648), wrapped)

	_, err = inst.Call("sub", 1, 1)
	assert.Error(t, err)
}

func TestEngineRejectsGarbage(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)

	_, err = engine.Compile([]byte("not wasm"))
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	v, err := convert(wasmer.I32, 4294967297)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	v, err = convert(wasmer.F64, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestEmbeddedHostWebAssemblyStress(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)
	h, err := embedded.NewHost(embedded.Config{Modules: engine})
	require.NoError(t, err)

	ctx := context.Background()
	caps := probe.NewRegistry(h, nil).Detect(ctx)
	require.True(t, caps.Has(probe.CapWebAssembly))

	for _, r := range probe.NewHarness(h, nil, nil).Run(ctx, caps) {
		if r.Name == probe.StressWebAssembly {
			assert.True(t, r.Succeeded, r.Err)
		}
	}
}

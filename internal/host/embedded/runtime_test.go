package embedded

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/K0NGR3SS/ghostprobe/internal/host"
	"github.com/K0NGR3SS/ghostprobe/internal/probe"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addEngine understands exactly one module: probe.AddModule.
type addEngine struct {
	compiled int
}

func (e *addEngine) Compile(code []byte) (CompiledModule, error) {
	e.compiled++
	if !bytes.Equal(code, probe.AddModule) {
		return nil, errors.New("unknown module")
	}
	return addModule{}, nil
}

type addModule struct{}

func (addModule) Instantiate() (ModuleInstance, error) { return addModule{}, nil }

func (addModule) Functions() []string { return []string{probe.AddExport} }

func (addModule) Call(name string, args ...float64) (any, error) {
	if name != probe.AddExport || len(args) != 2 {
		return nil, fmt.Errorf("bad call %s%v", name, args)
	}
	return int32(args[0]) + int32(args[1]), nil
}

const testUA = "Mozilla/5.0 (PlayStation 5 9.00) AppleWebKit/605.1.15 Cobalt/25.lts.30.1034943-gold gles YouTube_PS5/1.37.0"

func newTestHost(t *testing.T, cfg Config) *host.Host {
	t.Helper()
	h, err := NewHost(cfg)
	require.NoError(t, err)
	return h
}

func TestDefined(t *testing.T) {
	ctx := context.Background()
	h := newTestHost(t, Config{})

	for global, want := range map[string]bool{
		"Array":       true,
		"ArrayBuffer": true,
		"navigator":   true,
		"WebAssembly": false,
		"FW_VERSION":  false,
		"noSuchThing": false,
	} {
		got, err := h.Defined(ctx, global)
		require.NoError(t, err, global)
		assert.Equal(t, want, got, global)
	}
}

func TestRunFragment(t *testing.T) {
	h := newTestHost(t, Config{})

	got, err := h.RunFragment(context.Background(), probe.JITBenchmark)
	require.NoError(t, err)
	assert.Equal(t, float64(probe.JITExpected), got)

	_, err = h.RunFragment(context.Background(), `throw new Error("nope")`)
	var ex *goja.Exception
	assert.ErrorAs(t, err, &ex)

	_, err = h.RunFragment(context.Background(), `return "text"`)
	assert.Error(t, err)
}

func TestIdentify(t *testing.T) {
	t.Run("firmware set", func(t *testing.T) {
		h := newTestHost(t, Config{UserAgent: testUA, Firmware: "9.00", FirmwareSet: true})
		id, err := h.Identify(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testUA, id.UserAgent)
		assert.True(t, id.Firmware.Set)
		assert.True(t, probe.KernelExploitable(id.Firmware))
	})

	t.Run("firmware unset", func(t *testing.T) {
		h := newTestHost(t, Config{})
		id, err := h.Identify(context.Background())
		require.NoError(t, err)
		assert.Empty(t, id.UserAgent)
		assert.False(t, id.Firmware.Set)
		assert.Equal(t, "not set", id.Firmware.String())
	})
}

func TestSequenceAndBuffer(t *testing.T) {
	ctx := context.Background()
	h := newTestHost(t, Config{})

	seq, err := h.NewSequence(ctx, 100)
	require.NoError(t, err)
	require.NoError(t, seq.Fill(ctx, 0, 60))
	require.NoError(t, seq.Fill(ctx, 60, 100))
	v, err := seq.At(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, float64(99), v)
	seq.Release()

	assert.NoError(t, h.TouchBuffer(ctx, probe.BufferSize))
	assert.Error(t, h.TouchBuffer(ctx, 0))
}

func TestWebAssembly(t *testing.T) {
	ctx := context.Background()
	engine := &addEngine{}
	h := newTestHost(t, Config{Modules: engine})

	ok, err := h.Defined(ctx, "WebAssembly")
	require.NoError(t, err)
	require.True(t, ok)

	inst, err := h.Instantiate(ctx, probe.AddModule)
	require.NoError(t, err)
	callable, err := inst.Callable(ctx, probe.AddExport)
	require.NoError(t, err)
	assert.True(t, callable)
	callable, err = inst.Callable(ctx, "sub")
	require.NoError(t, err)
	assert.False(t, callable)

	sum, err := inst.Call(ctx, probe.AddExport, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum)

	_, err = h.Instantiate(ctx, []byte{0x00, 0x61, 0x73, 0x6d})
	assert.Error(t, err)
	assert.Equal(t, 2, engine.compiled)
}

func TestCallTimeout(t *testing.T) {
	h := newTestHost(t, Config{Timeout: 50 * time.Millisecond})

	_, err := h.RunFragment(context.Background(), `for (;;) {}`)
	var interrupted *goja.InterruptedError
	require.ErrorAs(t, err, &interrupted)

	// The VM stays usable after an interrupt.
	got, err := h.RunFragment(context.Background(), `return 1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)
}

func TestCallCancelled(t *testing.T) {
	h := newTestHost(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Defined(ctx, "Array")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProbeRun(t *testing.T) {
	h := newTestHost(t, Config{UserAgent: testUA, Firmware: "9.00", FirmwareSet: true, Modules: &addEngine{}})
	id, err := h.Identify(context.Background())
	require.NoError(t, err)

	report, err := probe.NewAssembler(h, discard{}, probe.Options{Identity: id}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "embedded", report.Host)
	assert.True(t, report.Behavioral.Passed)
	assert.Equal(t, probe.CompletionBanner, report.Transcript[len(report.Transcript)-1])
	assert.Contains(t, report.Transcript, "JIT: OK")
	assert.Contains(t, report.Transcript, "WebAssembly Stress: OK")
	assert.Contains(t, report.Transcript, "Array Stress: OK")
	assert.Contains(t, report.Transcript, "TypedArray Stress: OK")
	assert.Contains(t, report.Transcript, "Kernel Exploit: Yes")
	assert.Contains(t, report.Transcript, "FW_VERSION (Y2JB): 9.00")

	live, err := h.RunFragment(context.Background(), "return Object.keys(globalThis.__ghostprobe.slots).length;")
	require.NoError(t, err)
	assert.Zero(t, live, "stash slots left behind")
}

type discard struct{}

func (discard) WriteLine(context.Context, string) error { return nil }

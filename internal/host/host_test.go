package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	snippet Snippet
	args    []any
}

// scriptedRuntime answers every call with the next queued result.
type scriptedRuntime struct {
	results []any
	err     error
	calls   []call
}

func (r *scriptedRuntime) Name() string { return "scripted" }

func (r *scriptedRuntime) Call(_ context.Context, s Snippet, args ...any) (any, error) {
	r.calls = append(r.calls, call{snippet: s, args: args})
	if r.err != nil {
		return nil, r.err
	}
	if len(r.results) == 0 {
		return nil, nil
	}
	v := r.results[0]
	r.results = r.results[1:]
	return v, nil
}

func TestInstantiatePassesBytesAsNumbers(t *testing.T) {
	rt := &scriptedRuntime{results: []any{float64(7), float64(5)}}
	h := New(rt)

	inst, err := h.Instantiate(context.Background(), []byte{0x00, 0x61, 0xff})
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{0, 0x61, 0xff}}, rt.calls[0].args)

	sum, err := inst.Call(context.Background(), "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum)
	assert.Equal(t, []any{7, "add", int32(2), int32(3)}, rt.calls[1].args)
}

func TestResultTypeMismatch(t *testing.T) {
	h := New(&scriptedRuntime{results: []any{"yes", float64(1)}})

	_, err := h.Defined(context.Background(), "BigInt")
	assert.Error(t, err)
	_, err = h.Defined(context.Background(), "BigInt")
	assert.Error(t, err)
}

func TestIdentify(t *testing.T) {
	rt := &scriptedRuntime{results: []any{"Cobalt/25", "10.01"}}
	id, err := New(rt).Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cobalt/25", id.UserAgent)
	assert.True(t, id.Firmware.Set)
	assert.True(t, id.Firmware.Numeric)

	rt = &scriptedRuntime{results: []any{"", nil}}
	id, err = New(rt).Identify(context.Background())
	require.NoError(t, err)
	assert.False(t, id.Firmware.Set)
}

func TestRuntimeErrorsPropagate(t *testing.T) {
	boom := errors.New("ReferenceError: WeakRef is not defined")
	h := New(&scriptedRuntime{err: boom})

	_, err := h.NewWeakRef(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = h.Identify(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "scripted", h.Name())
}

func TestReleaseDropsSlots(t *testing.T) {
	ctx := context.Background()
	rt := &scriptedRuntime{results: []any{float64(1), float64(2), float64(3), float64(4)}}
	h := New(rt)

	seq, err := h.NewSequence(ctx, 10)
	require.NoError(t, err)
	x, err := h.NewBigInt(ctx, 1)
	require.NoError(t, err)
	ref, err := h.NewWeakRef(ctx)
	require.NoError(t, err)
	inst, err := h.Instantiate(ctx, []byte{0x00})
	require.NoError(t, err)

	seq.Release()
	x.Release()
	ref.Release()
	inst.Release()

	var released []any
	for _, c := range rt.calls {
		if c.snippet == snipRelease {
			released = append(released, c.args[0])
		}
	}
	assert.Equal(t, []any{1, 2, 3, 4}, released)
}

package probe

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var errInjected = errors.New("injected failure")

// fakeHost is an in-memory host with switchable capabilities and failures.
type fakeHost struct {
	globals  map[string]bool
	fragment func(body string) (float64, error)

	fail  map[string]error // op name -> error
	panic map[string]bool  // op name -> panic instead of returning

	truncateBigInt bool
	notCallable    bool

	calls map[string]int
	live  int // host objects created and not yet released
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		globals: map[string]bool{
			"BigInt": true, "SharedArrayBuffer": true, "Atomics": true,
			"WeakRef": true, "ArrayBuffer": true, "WebAssembly": true,
		},
		fragment: func(string) (float64, error) { return JITExpected, nil },
		fail:     map[string]error{},
		panic:    map[string]bool{},
		calls:    map[string]int{},
	}
}

func (h *fakeHost) without(globals ...string) *fakeHost {
	for _, g := range globals {
		delete(h.globals, g)
	}
	return h
}

func (h *fakeHost) op(name string) error {
	h.calls[name]++
	if h.panic[name] {
		panic(fmt.Sprintf("%s exploded", name))
	}
	return h.fail[name]
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) Defined(_ context.Context, global string) (bool, error) {
	if err := h.op("defined:" + global); err != nil {
		return false, err
	}
	return h.globals[global], nil
}

func (h *fakeHost) RunFragment(_ context.Context, body string) (float64, error) {
	if err := h.op("fragment"); err != nil {
		return 0, err
	}
	return h.fragment(body)
}

func (h *fakeHost) NewSequence(_ context.Context, n int) (Sequence, error) {
	if err := h.op("sequence"); err != nil {
		return nil, err
	}
	h.live++
	return &fakeSequence{host: h, data: make([]float64, n)}, nil
}

func (h *fakeHost) NewBigInt(_ context.Context, seed int64) (BigInt, error) {
	if err := h.op("bigint"); err != nil {
		return nil, err
	}
	if !h.globals["BigInt"] {
		return nil, errors.New("ReferenceError: BigInt is not defined")
	}
	h.live++
	return &fakeBigInt{host: h, x: big.NewInt(seed)}, nil
}

func (h *fakeHost) NewWeakRef(_ context.Context) (WeakRef, error) {
	if err := h.op("weakref"); err != nil {
		return nil, err
	}
	if !h.globals["WeakRef"] {
		return nil, errors.New("ReferenceError: WeakRef is not defined")
	}
	h.live++
	return &fakeWeakRef{host: h}, nil
}

func (h *fakeHost) TouchBuffer(_ context.Context, size int) error {
	if err := h.op("buffer"); err != nil {
		return err
	}
	b := make([]byte, size)
	b[0], b[size-1] = 1, 2
	return nil
}

func (h *fakeHost) Instantiate(_ context.Context, code []byte) (Instance, error) {
	if err := h.op("instantiate"); err != nil {
		return nil, err
	}
	if len(code) < 8 || string(code[1:4]) != "asm" {
		return nil, errors.New("CompileError: bad magic")
	}
	h.live++
	return &fakeInstance{host: h}, nil
}

type fakeSequence struct {
	host *fakeHost
	data []float64
}

func (s *fakeSequence) Fill(_ context.Context, from, to int) error {
	if err := s.host.op("fill"); err != nil {
		return err
	}
	for i := from; i < to; i++ {
		s.data[i] = float64(i)
	}
	return nil
}

func (s *fakeSequence) At(_ context.Context, i int) (float64, error) {
	return s.data[i], nil
}

func (s *fakeSequence) Release() {
	s.data = nil
	s.host.live--
}

type fakeBigInt struct {
	host *fakeHost
	x    *big.Int
}

func (b *fakeBigInt) Step(_ context.Context, n int) error {
	if err := b.host.op("step"); err != nil {
		return err
	}
	one := big.NewInt(1)
	for i := 0; i < n; i++ {
		b.x.Lsh(b.x, 1)
		b.x.Xor(b.x, one)
	}
	if b.host.truncateBigInt {
		b.x.SetInt64(b.x.Int64())
	}
	return nil
}

func (b *fakeBigInt) BitLen(context.Context) (int, error) {
	return b.x.BitLen(), nil
}

func (b *fakeBigInt) Release() { b.host.live-- }

type fakeWeakRef struct {
	host  *fakeHost
	deref int
}

func (w *fakeWeakRef) Deref(_ context.Context, n int) error {
	if err := w.host.op("deref"); err != nil {
		return err
	}
	w.deref += n
	return nil
}

func (w *fakeWeakRef) Release() { w.host.live-- }

type fakeInstance struct {
	host *fakeHost
}

func (i *fakeInstance) Callable(_ context.Context, export string) (bool, error) {
	return export == AddExport && !i.host.notCallable, nil
}

func (i *fakeInstance) Call(_ context.Context, export string, a, b int32) (int64, error) {
	if err := i.host.op("call"); err != nil {
		return 0, err
	}
	return int64(a) + int64(b), nil
}

func (i *fakeInstance) Release() { i.host.live-- }

// recordingScheduler never blocks; it counts suspension points instead.
type recordingScheduler struct {
	yields int
	sleeps []time.Duration
}

func (s *recordingScheduler) Yield(ctx context.Context) error {
	s.yields++
	return ctx.Err()
}

func (s *recordingScheduler) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

type memorySink struct {
	lines  []string
	failAt int // 1-based write index that fails; 0 never fails
}

func (s *memorySink) WriteLine(_ context.Context, line string) error {
	if s.failAt > 0 && len(s.lines)+1 == s.failAt {
		return errors.New("sink closed")
	}
	s.lines = append(s.lines, line)
	return nil
}

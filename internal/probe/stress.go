package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"go.uber.org/zap"
)

const (
	StressArray       = "Array"
	StressBigInt      = "BigInt"
	StressWeakRef     = "WeakRef"
	StressTypedArray  = "TypedArray"
	StressWebAssembly = "WebAssembly"
)

// Workload is a bounded loop that yields every Cadence steps.
type Workload struct {
	Size    int
	Cadence int
}

// Yields is the number of suspension points the workload produces.
func (w Workload) Yields() int {
	return (w.Size + w.Cadence - 1) / w.Cadence
}

var (
	ArrayWorkload   = Workload{Size: 15000, Cadence: 2048}
	BigIntWorkload  = Workload{Size: 30000, Cadence: 4096}
	WeakRefWorkload = Workload{Size: 12000, Cadence: 1024}
)

// BufferSize is the raw buffer allocation of the TypedArray test.
const BufferSize = 2 * 1024 * 1024

// AddExport names the function exported by AddModule.
const AddExport = "add"

// AddModule is a WebAssembly module exporting add(i32, i32) i32.
var AddModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, // type: (i32, i32) -> i32
	0x03, 0x02, 0x01, 0x00, // func 0 has type 0
	0x07, 0x07, 0x01, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00, // export "add" = func 0
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b, // local.get 0, local.get 1, i32.add
}

var errNoWebAssembly = errors.New("WebAssembly not present, module not compiled")

// StressTest is one isolated workload.
type StressTest struct {
	Name string
	Run  func(ctx context.Context, caps *CapabilitySet) error
}

// Harness runs the stress tests in order, each inside its own failure
// boundary.
type Harness struct {
	host   Host
	sched  Scheduler
	logger *zap.Logger
}

func NewHarness(h Host, sched Scheduler, logger *zap.Logger) *Harness {
	if sched == nil {
		sched = NewTimerScheduler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{host: h, sched: sched, logger: logger}
}

func (h *Harness) Tests() []StressTest {
	return []StressTest{
		{Name: StressArray, Run: h.array},
		{Name: StressBigInt, Run: h.bigInt},
		{Name: StressWeakRef, Run: h.weakRef},
		{Name: StressTypedArray, Run: h.typedArray},
		{Name: StressWebAssembly, Run: h.webAssembly},
	}
}

// Run executes every test exactly once. One test failing never stops the
// others.
func (h *Harness) Run(ctx context.Context, caps *CapabilitySet) []models.StressResult {
	tests := h.Tests()
	results := make([]models.StressResult, 0, len(tests))
	for _, t := range tests {
		res := models.StressResult{Name: t.Name}
		err := guard(func() error { return t.Run(ctx, caps) })
		if err != nil {
			h.logger.Debug("stress test failed", zap.String("test", t.Name), zap.Error(err))
			res.Err = err.Error()
		} else {
			res.Succeeded = true
		}
		results = append(results, res)
	}
	return results
}

// chunked issues the workload to the host in Cadence-sized chunks and yields
// after each one.
func (h *Harness) chunked(ctx context.Context, w Workload, step func(from, to int) error) error {
	for from := 0; from < w.Size; from += w.Cadence {
		to := min(from+w.Cadence, w.Size)
		if err := step(from, to); err != nil {
			return fmt.Errorf("chunk [%d,%d): %w", from, to, err)
		}
		if err := h.sched.Yield(ctx); err != nil {
			return fmt.Errorf("yield: %w", err)
		}
	}
	return nil
}

func (h *Harness) array(ctx context.Context, _ *CapabilitySet) error {
	w := ArrayWorkload
	seq, err := h.host.NewSequence(ctx, w.Size)
	if err != nil {
		return err
	}
	defer seq.Release()

	if err := h.chunked(ctx, w, func(from, to int) error {
		return seq.Fill(ctx, from, to)
	}); err != nil {
		return err
	}

	last, err := seq.At(ctx, w.Size-1)
	if err != nil {
		return err
	}
	if last != float64(w.Size-1) {
		return fmt.Errorf("last element is %v, want %d", last, w.Size-1)
	}
	return nil
}

func (h *Harness) bigInt(ctx context.Context, _ *CapabilitySet) error {
	w := BigIntWorkload
	x, err := h.host.NewBigInt(ctx, 1)
	if err != nil {
		return err
	}
	defer x.Release()

	if err := h.chunked(ctx, w, func(from, to int) error {
		return x.Step(ctx, to-from)
	}); err != nil {
		return err
	}

	// x starts at 1 and every step appends a one bit.
	bits, err := x.BitLen(ctx)
	if err != nil {
		return err
	}
	if bits != w.Size+1 {
		return fmt.Errorf("bit length %d, want %d", bits, w.Size+1)
	}
	return nil
}

func (h *Harness) weakRef(ctx context.Context, _ *CapabilitySet) error {
	ref, err := h.host.NewWeakRef(ctx)
	if err != nil {
		return err
	}
	defer ref.Release()

	return h.chunked(ctx, WeakRefWorkload, func(from, to int) error {
		return ref.Deref(ctx, to-from)
	})
}

func (h *Harness) typedArray(ctx context.Context, _ *CapabilitySet) error {
	return h.host.TouchBuffer(ctx, BufferSize)
}

func (h *Harness) webAssembly(ctx context.Context, caps *CapabilitySet) error {
	if present, err := caps.Present(CapWebAssembly); err != nil || !present {
		return errNoWebAssembly
	}

	inst, err := h.host.Instantiate(ctx, AddModule)
	if err != nil {
		return err
	}
	defer inst.Release()

	ok, err := inst.Callable(ctx, AddExport)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("export %q is not a function", AddExport)
	}
	sum, err := inst.Call(ctx, AddExport, 2, 3)
	if err != nil {
		return err
	}
	if sum != 5 {
		return fmt.Errorf("%s(2, 3) = %d", AddExport, sum)
	}
	return nil
}

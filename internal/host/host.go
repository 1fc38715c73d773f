// Package host adapts JavaScript runtimes to probe.Host. Each runtime only
// needs to evaluate a function expression and call it; the probe operations
// themselves are shared snippets.
package host

import (
	"context"
	"fmt"

	"github.com/K0NGR3SS/ghostprobe/internal/probe"
)

// Runtime evaluates snippets. Call returns the result converted to nil, bool,
// float64 or string; a thrown exception is an error.
type Runtime interface {
	Name() string
	Call(ctx context.Context, s Snippet, args ...any) (any, error)
}

// Host implements probe.Host and probe.IdentitySource on top of a Runtime.
type Host struct {
	rt Runtime
}

func New(rt Runtime) *Host {
	return &Host{rt: rt}
}

var (
	_ probe.Host           = (*Host)(nil)
	_ probe.IdentitySource = (*Host)(nil)
)

func (h *Host) Name() string { return h.rt.Name() }

func (h *Host) Defined(ctx context.Context, global string) (bool, error) {
	v, err := h.rt.Call(ctx, snipDefined, global)
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func (h *Host) RunFragment(ctx context.Context, body string) (float64, error) {
	v, err := h.rt.Call(ctx, snipFragment, body)
	if err != nil {
		return 0, err
	}
	return asNumber(v)
}

func (h *Host) NewSequence(ctx context.Context, n int) (probe.Sequence, error) {
	slot, err := h.slot(ctx, snipSeqNew, n)
	if err != nil {
		return nil, err
	}
	return &sequence{host: h, slot: slot}, nil
}

func (h *Host) NewBigInt(ctx context.Context, seed int64) (probe.BigInt, error) {
	slot, err := h.slot(ctx, snipBigNew, seed)
	if err != nil {
		return nil, err
	}
	return &bigInt{host: h, slot: slot}, nil
}

func (h *Host) NewWeakRef(ctx context.Context) (probe.WeakRef, error) {
	slot, err := h.slot(ctx, snipWeakNew)
	if err != nil {
		return nil, err
	}
	return &weakRef{host: h, slot: slot}, nil
}

func (h *Host) TouchBuffer(ctx context.Context, size int) error {
	if size < 1 {
		return fmt.Errorf("buffer size %d", size)
	}
	_, err := h.rt.Call(ctx, snipBuffer, size)
	return err
}

func (h *Host) Instantiate(ctx context.Context, code []byte) (probe.Instance, error) {
	bytes := make([]any, len(code))
	for i, b := range code {
		bytes[i] = int(b)
	}
	slot, err := h.slot(ctx, snipWasmNew, bytes)
	if err != nil {
		return nil, err
	}
	return &instance{host: h, slot: slot}, nil
}

// Identify reads navigator.userAgent and the FW_VERSION global.
func (h *Host) Identify(ctx context.Context) (probe.Identity, error) {
	ua, err := h.rt.Call(ctx, snipUserAgent)
	if err != nil {
		return probe.Identity{}, fmt.Errorf("read user agent: %w", err)
	}
	fw, err := h.rt.Call(ctx, snipFirmware)
	if err != nil {
		return probe.Identity{}, fmt.Errorf("read firmware: %w", err)
	}

	id := probe.Identity{Firmware: probe.ParseFirmware("", false)}
	id.UserAgent, _ = ua.(string)
	if raw, ok := fw.(string); ok {
		id.Firmware = probe.ParseFirmware(raw, true)
	}
	return id, nil
}

func (h *Host) slot(ctx context.Context, s Snippet, args ...any) (int, error) {
	v, err := h.rt.Call(ctx, s, args...)
	if err != nil {
		return 0, err
	}
	n, err := asNumber(v)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (h *Host) release(slot int) {
	_, _ = h.rt.Call(context.Background(), snipRelease, slot)
}

type sequence struct {
	host *Host
	slot int
}

func (s *sequence) Fill(ctx context.Context, from, to int) error {
	_, err := s.host.rt.Call(ctx, snipSeqFill, s.slot, from, to)
	return err
}

func (s *sequence) At(ctx context.Context, i int) (float64, error) {
	v, err := s.host.rt.Call(ctx, snipSeqAt, s.slot, i)
	if err != nil {
		return 0, err
	}
	return asNumber(v)
}

func (s *sequence) Release() { s.host.release(s.slot) }

type bigInt struct {
	host *Host
	slot int
}

func (b *bigInt) Step(ctx context.Context, n int) error {
	_, err := b.host.rt.Call(ctx, snipBigStep, b.slot, n)
	return err
}

func (b *bigInt) BitLen(ctx context.Context) (int, error) {
	v, err := b.host.rt.Call(ctx, snipBigBits, b.slot)
	if err != nil {
		return 0, err
	}
	n, err := asNumber(v)
	return int(n), err
}

func (b *bigInt) Release() { b.host.release(b.slot) }

type weakRef struct {
	host *Host
	slot int
}

func (w *weakRef) Deref(ctx context.Context, n int) error {
	_, err := w.host.rt.Call(ctx, snipWeakDeref, w.slot, n)
	return err
}

func (w *weakRef) Release() { w.host.release(w.slot) }

type instance struct {
	host *Host
	slot int
}

func (i *instance) Callable(ctx context.Context, export string) (bool, error) {
	v, err := i.host.rt.Call(ctx, snipWasmCallable, i.slot, export)
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func (i *instance) Call(ctx context.Context, export string, a, b int32) (int64, error) {
	v, err := i.host.rt.Call(ctx, snipWasmCall, i.slot, export, a, b)
	if err != nil {
		return 0, err
	}
	n, err := asNumber(v)
	return int64(n), err
}

func (i *instance) Release() { i.host.release(i.slot) }

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
	return b, nil
}

func asNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

package probe

import (
	"context"
	"fmt"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"go.uber.org/zap"
)

const (
	CapBigInt            = "BigInt"
	CapSharedArrayBuffer = "SharedArrayBuffer"
	CapAtomics           = "Atomics"
	CapWeakRef           = "WeakRef"
	CapArrayBuffer       = "ArrayBuffer"
	CapWebAssembly       = "WebAssembly"
	CapJIT               = "JIT"
)

// Predicate decides whether one capability exists on a host.
type Predicate func(ctx context.Context, h Host) (bool, error)

// Check is one named entry of the registry.
type Check struct {
	Name      string
	Predicate Predicate
}

// Defined returns a predicate that only tests whether global is defined.
func Defined(global string) Predicate {
	return func(ctx context.Context, h Host) (bool, error) {
		return h.Defined(ctx, global)
	}
}

// ExistenceChecks is the fixed, ordered capability list.
func ExistenceChecks() []Check {
	return []Check{
		{Name: CapBigInt, Predicate: Defined("BigInt")},
		{Name: CapSharedArrayBuffer, Predicate: Defined("SharedArrayBuffer")},
		{Name: CapAtomics, Predicate: Defined("Atomics")},
		{Name: CapWeakRef, Predicate: Defined("WeakRef")},
		{Name: CapArrayBuffer, Predicate: Defined("ArrayBuffer")},
		{Name: CapWebAssembly, Predicate: Defined("WebAssembly")},
	}
}

// CapabilitySet records capability results in the order they were produced.
type CapabilitySet struct {
	results []models.CapabilityResult
	index   map[string]int
}

func NewCapabilitySet() *CapabilitySet {
	return &CapabilitySet{index: make(map[string]int)}
}

func (s *CapabilitySet) record(name string, present bool) error {
	if _, ok := s.index[name]; ok {
		return fmt.Errorf("capability %s already recorded", name)
	}
	s.index[name] = len(s.results)
	s.results = append(s.results, models.CapabilityResult{Name: name, Present: present})
	return nil
}

// Present reads a recorded capability.
func (s *CapabilitySet) Present(name string) (bool, error) {
	i, ok := s.index[name]
	if !ok {
		return false, fmt.Errorf("%s: %w", name, ErrNotProbed)
	}
	return s.results[i].Present, nil
}

// Has is Present with unprobed capabilities reading as absent.
func (s *CapabilitySet) Has(name string) bool {
	ok, _ := s.Present(name)
	return ok
}

func (s *CapabilitySet) Results() []models.CapabilityResult {
	return append([]models.CapabilityResult(nil), s.results...)
}

// Registry runs existence checks against a host.
type Registry struct {
	host   Host
	checks []Check
	logger *zap.Logger
}

func NewRegistry(h Host, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{host: h, checks: ExistenceChecks(), logger: logger}
}

// Detect runs every check once, in declaration order. A check that errors or
// panics records the capability as absent.
func (r *Registry) Detect(ctx context.Context) *CapabilitySet {
	set := NewCapabilitySet()
	for _, c := range r.checks {
		var present bool
		err := guard(func() error {
			ok, err := c.Predicate(ctx, r.host)
			present = ok
			return err
		})
		if err != nil {
			r.logger.Debug("existence check failed", zap.String("capability", c.Name), zap.Error(err))
			present = false
		}
		_ = set.record(c.Name, present)
	}
	return set
}

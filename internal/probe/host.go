package probe

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by hosts for operations they cannot perform at all.
var ErrUnsupported = errors.New("operation not supported by host")

// Host is a scripting environment under test. Implementations translate each
// call into work inside that environment; any thrown exception comes back as
// an error.
type Host interface {
	Name() string

	// Defined reports whether a global identifier is defined, without
	// touching its value.
	Defined(ctx context.Context, global string) (bool, error)

	// RunFragment builds a function from body at run time, invokes it and
	// returns its numeric result.
	RunFragment(ctx context.Context, body string) (float64, error)

	NewSequence(ctx context.Context, length int) (Sequence, error)
	NewBigInt(ctx context.Context, seed int64) (BigInt, error)
	NewWeakRef(ctx context.Context) (WeakRef, error)

	// TouchBuffer allocates a raw buffer of size bytes and writes then reads
	// back its first and last byte.
	TouchBuffer(ctx context.Context, size int) error

	// Instantiate compiles and instantiates a sandboxed bytecode module.
	Instantiate(ctx context.Context, code []byte) (Instance, error)
}

// Sequence is an ordered numeric container living inside the host. Release
// drops the host-side object; the same holds for BigInt, WeakRef and Instance.
type Sequence interface {
	// Fill sets element i to i for every i in [from, to).
	Fill(ctx context.Context, from, to int) error
	At(ctx context.Context, i int) (float64, error)
	Release()
}

// BigInt is an arbitrary-precision accumulator living inside the host.
type BigInt interface {
	// Step applies x = (x << 1) ^ 1 n times.
	Step(ctx context.Context, n int) error
	BitLen(ctx context.Context) (int, error)
	Release()
}

// WeakRef is a weak reference whose only strong referent has been dropped.
type WeakRef interface {
	Deref(ctx context.Context, n int) error
	Release()
}

// Instance is an instantiated bytecode module.
type Instance interface {
	Callable(ctx context.Context, export string) (bool, error)
	Call(ctx context.Context, export string, a, b int32) (int64, error)
	Release()
}

// Identity is the host-supplied identifying string and firmware marker.
type Identity struct {
	UserAgent string
	Firmware  Firmware
}

// IdentitySource is implemented by hosts that can report their own identity.
type IdentitySource interface {
	Identify(ctx context.Context) (Identity, error)
}

// LineSink receives finished report lines. WriteLine returns once the line
// has been accepted.
type LineSink interface {
	WriteLine(ctx context.Context, line string) error
}

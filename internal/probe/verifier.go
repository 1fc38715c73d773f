package probe

import (
	"context"
	"fmt"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"go.uber.org/zap"
)

const (
	// JITBenchmark sums 0..499 inside a function built at run time.
	JITBenchmark = "let x=0; for(let i=0;i<500;i++){x+=i}; return x;"

	// JITExpected is the only result that counts as a pass.
	JITExpected = 124750
)

// Verifier executes the behavioral JIT check. Identifying strings of some
// restricted builds claim full execution support, so only running code counts.
type Verifier struct {
	host   Host
	logger *zap.Logger
}

func NewVerifier(h Host, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{host: h, logger: logger}
}

func (v *Verifier) Verify(ctx context.Context) models.BehavioralResult {
	res := models.BehavioralResult{Name: CapJIT}
	err := guard(func() error {
		got, err := v.host.RunFragment(ctx, JITBenchmark)
		if err != nil {
			return err
		}
		if got != JITExpected {
			return fmt.Errorf("benchmark returned %v, want %d", got, JITExpected)
		}
		return nil
	})
	if err != nil {
		v.logger.Debug("behavioral check failed", zap.Error(err))
		res.Err = err.Error()
		return res
	}
	res.Passed = true
	return res
}


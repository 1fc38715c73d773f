package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Literal transcript vocabulary. Downstream scrapers match on these.
const (
	HeaderExistence      = "Core Feature Detection"
	HeaderStress         = "Stress Tests"
	HeaderExploitability = "Exploitability Assessment"
	HeaderSystemInfo     = "System Info"

	TitleBanner      = "==================== PS5 Heuristic Testing ===================="
	CompletionBanner = "==================== Heuristic Complete ===================="

	ClearLines = 120
)

var separators = map[string]string{
	HeaderExistence:      strings.Repeat("-", 25),
	HeaderStress:         strings.Repeat("-", 34),
	HeaderExploitability: strings.Repeat("-", 26),
	HeaderSystemInfo:     strings.Repeat("-", 21),
}

// State is a step of the assembler. States only ever advance.
type State int

const (
	StateClearScreen State = iota
	StateExistence
	StateStress
	StateExploitability
	StateSystemInfo
	StateDone
)

func (s State) String() string {
	switch s {
	case StateClearScreen:
		return "clear_screen"
	case StateExistence:
		return "existence"
	case StateStress:
		return "stress"
	case StateExploitability:
		return "exploitability"
	case StateSystemInfo:
		return "system_info"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Pacing holds the readability delays of a live stream.
type Pacing struct {
	Item time.Duration // after each existence and stress line
	Line time.Duration // between emitted transcript lines
}

func DefaultPacing() Pacing {
	return Pacing{Item: 10 * time.Millisecond, Line: 25 * time.Millisecond}
}

// Options configures an Assembler.
type Options struct {
	Identity  Identity
	Scheduler Scheduler
	Pacing    Pacing
	Logger    *zap.Logger
}

// Assembler drives one probe run and owns its transcript.
type Assembler struct {
	host   Host
	sink   LineSink
	opts   Options
	logger *zap.Logger

	state  State
	caps   *CapabilitySet
	report *models.Report
}

func NewAssembler(h Host, sink LineSink, opts Options) *Assembler {
	if opts.Scheduler == nil {
		opts.Scheduler = NewTimerScheduler()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		host:   h,
		sink:   sink,
		opts:   opts,
		logger: logger.With(zap.String("run_id", uuid.NewString()), zap.String("host", h.Name())),
	}
}

// State reports the current step; StateDone once Run has finished assembly.
func (a *Assembler) State() State {
	return a.state
}

// Run assembles the report and emits the transcript. Probe failures end up in
// the report; the returned error is always a sink or context failure.
func (a *Assembler) Run(ctx context.Context) (*models.Report, error) {
	a.report = &models.Report{Host: a.host.Name()}
	start := time.Now()

	for a.state = StateClearScreen; a.state != StateDone; a.state++ {
		a.logger.Debug("entering state", zap.Stringer("state", a.state))
		if err := a.step(ctx); err != nil {
			return a.report, fmt.Errorf("%s: %w", a.state, err)
		}
	}
	a.push(CompletionBanner)

	a.logger.Info("probe assembled",
		zap.Int("lines", len(a.report.Transcript)),
		zap.Bool("userland", a.report.Verdict(models.UserlandExecution)),
		zap.Bool("kernel", a.report.Verdict(models.KernelExploit)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := a.emit(ctx); err != nil {
		return a.report, fmt.Errorf("emit transcript: %w", err)
	}
	return a.report, nil
}

func (a *Assembler) step(ctx context.Context) error {
	switch a.state {
	case StateClearScreen:
		return a.clearScreen(ctx)
	case StateExistence:
		return a.existence(ctx)
	case StateStress:
		return a.stress(ctx)
	case StateExploitability:
		return a.exploitability()
	case StateSystemInfo:
		a.systemInfo()
		return nil
	}
	return nil
}

func (a *Assembler) push(lines ...string) {
	a.report.Transcript = append(a.report.Transcript, lines...)
}

func (a *Assembler) header(h string) {
	a.push(h, separators[h])
}

func (a *Assembler) pause(ctx context.Context, d time.Duration) {
	// Pacing is cosmetic; a cancelled context only shortens it.
	_ = a.opts.Scheduler.Sleep(ctx, d)
}

func (a *Assembler) clearScreen(ctx context.Context) error {
	if err := a.sink.WriteLine(ctx, strings.Repeat("\n", ClearLines)); err != nil {
		return err
	}
	return a.sink.WriteLine(ctx, TitleBanner+"\n")
}

func (a *Assembler) existence(ctx context.Context) error {
	a.header(HeaderExistence)

	a.caps = NewRegistry(a.host, a.logger).Detect(ctx)
	behavior := NewVerifier(a.host, a.logger).Verify(ctx)
	if err := a.caps.record(CapJIT, behavior.Passed); err != nil {
		return err
	}
	a.report.Behavioral = behavior
	a.report.Capabilities = a.caps.Results()

	for _, c := range a.report.Capabilities {
		a.push(fmt.Sprintf("%s: %s", c.Name, okFail(c.Present)))
		a.pause(ctx, a.opts.Pacing.Item)
	}
	a.push("")
	return nil
}

func (a *Assembler) stress(ctx context.Context) error {
	a.header(HeaderStress)

	harness := NewHarness(a.host, a.opts.Scheduler, a.logger)
	a.report.Stress = harness.Run(ctx, a.caps)

	for _, s := range a.report.Stress {
		a.push(fmt.Sprintf("%s Stress: %s", s.Name, okFail(s.Succeeded)))
		a.pause(ctx, a.opts.Pacing.Item)
	}
	a.push("")
	return nil
}

func (a *Assembler) exploitability() error {
	a.header(HeaderExploitability)

	verdicts, err := Evaluate(a.caps, a.opts.Identity.Firmware)
	if err != nil {
		return err
	}
	a.report.Verdicts = verdicts.List()
	for _, v := range a.report.Verdicts {
		a.push(fmt.Sprintf("%s: %s", v.Category.Label(), yesNo(v.Value)))
	}
	a.push("")
	return nil
}

func (a *Assembler) systemInfo() {
	a.header(HeaderSystemInfo)

	a.report.System = ExtractSystemInfo(a.opts.Identity)
	a.push(systemInfoLines(a.report.System)...)
	a.push("")
}

func (a *Assembler) emit(ctx context.Context) error {
	for _, line := range a.report.Transcript {
		if err := a.sink.WriteLine(ctx, line); err != nil {
			return err
		}
		if err := a.opts.Scheduler.Sleep(ctx, a.opts.Pacing.Line); err != nil {
			return err
		}
	}
	return nil
}

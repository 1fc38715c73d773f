// Package sink provides destinations for transcript lines.
package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/K0NGR3SS/ghostprobe/internal/probe"
)

// Console writes each line followed by a newline.
type Console struct {
	w  io.Writer
	mu sync.Mutex
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) WriteLine(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, line+"\n")
	return err
}

// Tee writes every line to each sink in order and stops at the first failure.
type Tee []probe.LineSink

func (t Tee) WriteLine(ctx context.Context, line string) error {
	for i, s := range t {
		if err := s.WriteLine(ctx, line); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}

// Recorder keeps every line in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *Recorder) WriteLine(_ context.Context, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return nil
}

func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *Recorder) String() string {
	return strings.Join(r.Lines(), "\n")
}

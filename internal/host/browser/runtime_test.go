//go:build integration

package browser

import (
	"context"
	"testing"
	"time"

	"github.com/K0NGR3SS/ghostprobe/internal/host"
	"github.com/K0NGR3SS/ghostprobe/internal/probe"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserProbe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rt, err := Connect(ctx, Config{Launch: true})
	if err != nil {
		t.Skipf("browser not available: %v", err)
	}
	defer rt.Close()
	h := host.New(rt)

	got, err := h.RunFragment(ctx, probe.JITBenchmark)
	require.NoError(t, err)
	assert.Equal(t, float64(probe.JITExpected), got)

	id, err := h.Identify(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id.UserAgent)
	assert.False(t, id.Firmware.Set)

	report, err := probe.NewAssembler(h, discard{}, probe.Options{Identity: id}).Run(ctx)
	require.NoError(t, err)
	for _, c := range report.Capabilities {
		if c.Name == probe.CapWebAssembly || c.Name == probe.CapBigInt || c.Name == probe.CapWeakRef {
			assert.True(t, c.Present, c.Name)
		}
	}
	for _, s := range report.Stress {
		assert.True(t, s.Succeeded, "%s: %s", s.Name, s.Err)
	}
}

func TestCloseLeavesAttachedBrowserRunning(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	l := launcher.New().Headless(true)
	url, err := l.Launch()
	if err != nil {
		t.Skipf("browser not available: %v", err)
	}
	defer l.Cleanup()
	defer l.Kill()

	owner := rod.New().ControlURL(url)
	require.NoError(t, owner.Connect())
	defer owner.Close()

	rt, err := Connect(ctx, Config{DevToolsURL: url})
	require.NoError(t, err)
	got, err := host.New(rt).RunFragment(ctx, probe.JITBenchmark)
	require.NoError(t, err)
	assert.Equal(t, float64(probe.JITExpected), got)
	rt.Close()

	// The owner's connection still works and the probe page is gone.
	version, err := proto.BrowserGetVersion{}.Call(owner)
	require.NoError(t, err)
	assert.NotEmpty(t, version.Product)
	pages, err := owner.Pages()
	require.NoError(t, err)
	for _, p := range pages {
		info, err := p.Info()
		require.NoError(t, err)
		assert.NotEqual(t, rt.page.TargetID, info.TargetID)
	}
}

type discard struct{}

func (discard) WriteLine(context.Context, string) error { return nil }

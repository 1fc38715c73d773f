//go:build js && wasm

// Command ghostprobe-wasm runs the probe inside the page that loads it and
// streams the transcript through the page's log function.
package main

import (
	"context"

	"github.com/K0NGR3SS/ghostprobe/internal/host/device"
	"github.com/K0NGR3SS/ghostprobe/internal/probe"
)

func main() {
	ctx := context.Background()
	h := device.NewHost()

	id, err := h.Identify(ctx)
	if err != nil {
		id = probe.Identity{Firmware: probe.ParseFirmware("", false)}
	}

	a := probe.NewAssembler(h, device.NewSink(), probe.Options{
		Identity: id,
		Pacing:   probe.DefaultPacing(),
	})
	_, _ = a.Run(ctx)
}

/*
Package probe runs the capability battery against a scripting host and turns
the observations into an exploitability verdict.

A run walks a fixed sequence:

 1. existence checks for BigInt, SharedArrayBuffer, Atomics, WeakRef,
    ArrayBuffer and WebAssembly
 2. a behavioral JIT check that executes a runtime-built function
 3. five bounded stress workloads, each isolated from the others
 4. the heuristic verdicts
 5. system info extracted from the identifying string

The Assembler drives the sequence, collects the transcript and hands it to a
LineSink one line at a time. Every probe failure is reported as data; the
only errors a run returns come from the sink.

	asm := probe.NewAssembler(host, sink, probe.Options{
		Identity: probe.Identity{UserAgent: ua, Firmware: probe.ParseFirmware("9.00", true)},
	})
	report, err := asm.Run(ctx)
*/
package probe

// Package device runs the probe inside the browser engine that loaded the
// ghostprobe-wasm binary, through syscall/js. It only builds for js/wasm.
package device

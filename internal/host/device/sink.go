//go:build js && wasm

package device

import (
	"context"
	"fmt"
	"syscall/js"
)

// Sink writes lines through the page's log function, which forwards them to
// the log server. Without one it falls back to console.log.
type Sink struct {
	fn js.Value
}

func NewSink() *Sink {
	fn := js.Global().Get("log")
	if fn.Type() != js.TypeFunction {
		console := js.Global().Get("console")
		fn = console.Get("log").Call("bind", console)
	}
	return &Sink{fn: fn}
}

// WriteLine calls the log function and, when it returns a promise, waits for
// it to settle.
func (s *Sink) WriteLine(ctx context.Context, line string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("log: %v", rec)
		}
	}()

	res := s.fn.Invoke(line)
	if res.Type() != js.TypeObject || res.Get("then").Type() != js.TypeFunction {
		return nil
	}

	done := make(chan error, 1)
	onOK := js.FuncOf(func(js.Value, []js.Value) any {
		done <- nil
		return nil
	})
	defer onOK.Release()
	onErr := js.FuncOf(func(_ js.Value, args []js.Value) any {
		reason := "rejected"
		if len(args) > 0 {
			reason = args[0].Call("toString").String()
		}
		done <- fmt.Errorf("log: %s", reason)
		return nil
	})
	defer onErr.Release()
	res.Call("then", onOK, onErr)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

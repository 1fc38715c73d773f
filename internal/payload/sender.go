// Package payload delivers scripts to a device's payload port.
package payload

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

const (
	DefaultPort        = 50000
	DefaultDialTimeout = 10 * time.Second
)

// Send dials addr, writes data and closes the connection. The device treats
// the closed stream as the end of the script.
func Send(ctx context.Context, addr string, data []byte) (int, error) {
	dialer := net.Dialer{Timeout: DefaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	n, err := conn.Write(data)
	if err != nil {
		return n, fmt.Errorf("write to %s: %w", addr, err)
	}
	return n, nil
}

// SendFile reads path and sends it.
func SendFile(ctx context.Context, addr, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read payload: %w", err)
	}
	return Send(ctx, addr, data)
}

// DeviceAddr joins a device host and port, defaulting the port.
func DeviceAddr(host string, port int) string {
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, fmt.Sprint(port))
}

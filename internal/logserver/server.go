// Package logserver receives transcript lines posted by a device and exposes
// them to the delivery workflow.
package logserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/K0NGR3SS/ghostprobe/internal/probe"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	DefaultPort         = 8080
	DefaultAddr         = ":8080"
	DefaultPollInterval = 800 * time.Millisecond
	maxBodyBytes        = 1 << 20
)

// ErrTimeout is returned by the Wait methods when the awaited line never
// arrived.
var ErrTimeout = errors.New("timed out waiting for device")

// firmwarePattern matches both the bare marker and the system info line.
var firmwarePattern = regexp.MustCompile(`FW_VERSION(?: \([^)]*\))?:\s*(\S+)`)

type Config struct {
	Addr         string
	PollInterval time.Duration
	Logger       *zap.Logger

	// ProbeDir, when set, is served under /probe/ for the device loader.
	ProbeDir string

	// OnLine is called for every received line, in arrival order.
	OnLine func(line string)
}

type Server struct {
	config  Config
	logger  *zap.Logger
	router  *gin.Engine
	metrics *Metrics

	mu          sync.Mutex
	lines       []string
	firmware    string
	firmwareSet bool
	complete    bool

	listener net.Listener
}

func New(config Config) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:  config,
		logger:  logger,
		router:  gin.New(),
		metrics: NewMetrics(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// The device posts from the page's origin.
	s.router.Use(gin.Recovery(), s.metrics.Middleware(), cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	s.router.POST("/log", s.handleLog)
	s.router.GET("/lines", s.handleLines)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	if s.config.ProbeDir != "" {
		s.router.Static("/probe", s.config.ProbeDir)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Listen binds the configured address. It is separate from Serve so callers
// can learn the bound address before the device is told where to post.
func (s *Server) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Serve runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}

	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(s.listener)
	}()
	s.logger.Info("log server listening", zap.String("addr", s.listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown log server: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) handleLog(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := s.Append(splitLines(string(body))...)
	c.JSON(http.StatusOK, gin.H{"received": n})
}

func (s *Server) handleLines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lines": s.Lines(), "complete": s.Complete()})
}

// Append records lines as if a device had posted them.
func (s *Server) Append(lines ...string) int {
	s.mu.Lock()
	for _, line := range lines {
		s.lines = append(s.lines, line)
		s.metrics.LinesReceived.Inc()

		if m := firmwarePattern.FindStringSubmatch(line); m != nil {
			s.metrics.FirmwareReports.Inc()
			if !s.firmwareSet && !strings.HasPrefix(m[1], "not") {
				s.firmware = m[1]
				s.firmwareSet = true
				s.logger.Info("firmware reported", zap.String("fw", m[1]))
			}
		}
		if strings.TrimSpace(line) == probe.CompletionBanner {
			s.complete = true
			s.metrics.Complete.Set(1)
		}
	}
	s.mu.Unlock()

	for _, line := range lines {
		s.logger.Debug("device line", zap.String("line", line))
		if s.config.OnLine != nil {
			s.config.OnLine(line)
		}
	}
	return len(lines)
}

func (s *Server) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Firmware returns the first reported firmware marker.
func (s *Server) Firmware() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firmware, s.firmwareSet
}

func (s *Server) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// WaitForFirmware polls until a firmware marker arrives.
func (s *Server) WaitForFirmware(ctx context.Context, timeout time.Duration) (string, error) {
	err := s.poll(ctx, timeout, func() bool {
		_, ok := s.Firmware()
		return ok
	})
	if err != nil {
		return "", fmt.Errorf("firmware version: %w", err)
	}
	fw, _ := s.Firmware()
	return fw, nil
}

// WaitForTranscript polls until the completion banner arrives and returns
// every line received so far.
func (s *Server) WaitForTranscript(ctx context.Context, timeout time.Duration) ([]string, error) {
	if err := s.poll(ctx, timeout, s.Complete); err != nil {
		return s.Lines(), fmt.Errorf("transcript: %w", err)
	}
	return s.Lines(), nil
}

func (s *Server) poll(ctx context.Context, timeout time.Duration, done func() bool) error {
	deadline := time.Now().Add(timeout)

	for {
		if done() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.config.PollInterval):
		}
	}
}

func splitLines(body string) []string {
	body = strings.TrimRight(body, "\r\n")
	if body == "" {
		return []string{""}
	}
	parts := strings.Split(body, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/K0NGR3SS/ghostprobe/internal/host/browser"
	"github.com/K0NGR3SS/ghostprobe/internal/host/embedded"
	"github.com/K0NGR3SS/ghostprobe/internal/host/wasmbridge"
	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"github.com/K0NGR3SS/ghostprobe/internal/notifications"
	"github.com/K0NGR3SS/ghostprobe/internal/probe"
	"github.com/K0NGR3SS/ghostprobe/internal/sink"
	"github.com/K0NGR3SS/ghostprobe/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run the capability probe against a JavaScript host",
	Long: `Runs the existence checks, the JIT behavioral check and the five stress tests
against the selected host, then prints the transcript (or a summary table / JSON).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyProbeFlags(cmd)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		h, closeHost, err := openHost(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeHost()

		id, err := resolveIdentity(ctx, cmd, h)
		if err != nil {
			return err
		}

		out, recorder, err := buildSink(cmd)
		if err != nil {
			return err
		}

		opts := probe.Options{Identity: id, Pacing: probe.DefaultPacing(), Logger: logger}
		if cfg.NoPace {
			opts.Pacing = probe.Pacing{}
		}

		var spinner *pterm.SpinnerPrinter
		if recorder != nil {
			spinner = ui.StartSpinner(fmt.Sprintf("Probing %s host...", h.Name()))
		}
		report, err := probe.NewAssembler(h, out, opts).Run(ctx)
		if spinner != nil {
			_ = spinner.Stop()
		}
		if err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}

		switch cfg.OutputFormat {
		case "json":
			err = ui.PrintJSON(os.Stdout, report)
		case "table":
			err = ui.PrintSummary(os.Stdout, report)
		}
		if err != nil {
			return err
		}

		if notify, _ := cmd.Flags().GetBool("notify"); notify {
			notifySlack(ctx, report)
		}
		return nil
	},
}

// applyProbeFlags overlays explicitly set flags on the loaded configuration.
func applyProbeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host, _ = f.GetString("host")
	}
	if f.Changed("ua") {
		cfg.UserAgent, _ = f.GetString("ua")
	}
	if f.Changed("devtools-url") {
		cfg.Browser.DevToolsURL, _ = f.GetString("devtools-url")
	}
	if f.Changed("launch") {
		cfg.Browser.Launch, _ = f.GetBool("launch")
	}
	if f.Changed("page-url") {
		cfg.Browser.PageURL, _ = f.GetString("page-url")
	}
	if f.Changed("no-pace") {
		cfg.NoPace, _ = f.GetBool("no-pace")
	}
	if f.Changed("timeout") {
		cfg.Timeout, _ = f.GetDuration("timeout")
	}
	if json, _ := f.GetBool("json"); json {
		cfg.OutputFormat = "json"
	} else if summary, _ := f.GetBool("summary"); summary {
		cfg.OutputFormat = "table"
	}
}

// firmwareMarker reports the configured marker; an explicit empty --fw still
// counts as set.
func firmwareMarker(cmd *cobra.Command) (string, bool) {
	if cmd.Flags().Changed("fw") {
		fw, _ := cmd.Flags().GetString("fw")
		return fw, true
	}
	return cfg.Firmware, cfg.Firmware != ""
}

func openHost(ctx context.Context, cmd *cobra.Command) (probe.Host, func(), error) {
	switch cfg.Host {
	case "browser":
		h, rt, err := browser.NewHost(ctx, browser.Config{
			DevToolsURL: cfg.Browser.DevToolsURL,
			Launch:      cfg.Browser.Launch,
			PageURL:     cfg.Browser.PageURL,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return h, rt.Close, nil

	default:
		ec := embedded.Config{Timeout: cfg.Timeout, UserAgent: cfg.UserAgent, Logger: logger}
		if fw, set := firmwareMarker(cmd); set {
			ec.Firmware, ec.FirmwareSet = fw, true
		}
		if useWasm, _ := cmd.Flags().GetBool("wasm"); useWasm {
			engine, err := wasmbridge.New()
			if err != nil {
				logger.Warn("WebAssembly engine unavailable, continuing without it", zap.Error(err))
			} else {
				ec.Modules = engine
			}
		}
		h, err := embedded.NewHost(ec)
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded host: %w", err)
		}
		return h, func() {}, nil
	}
}

// resolveIdentity asks the host first and lets configuration override it.
func resolveIdentity(ctx context.Context, cmd *cobra.Command, h probe.Host) (probe.Identity, error) {
	id := probe.Identity{Firmware: probe.ParseFirmware("", false)}
	if src, ok := h.(probe.IdentitySource); ok {
		got, err := src.Identify(ctx)
		if err != nil {
			logger.Warn("host identity unavailable", zap.Error(err))
		} else {
			id = got
		}
	}

	if cfg.UserAgent != "" {
		id.UserAgent = cfg.UserAgent
	}
	if fw, set := firmwareMarker(cmd); set {
		id.Firmware = probe.ParseFirmware(fw, true)
	}
	logger.Debug("identity resolved",
		zap.String("user_agent", id.UserAgent),
		zap.Stringer("firmware", id.Firmware),
	)
	return id, nil
}

// buildSink returns the transcript destination. For table and JSON output the
// transcript is recorded instead of printed.
func buildSink(cmd *cobra.Command) (probe.LineSink, *sink.Recorder, error) {
	var (
		sinks    sink.Tee
		recorder *sink.Recorder
	)
	if cfg.OutputFormat == "json" || cfg.OutputFormat == "table" {
		recorder = &sink.Recorder{}
		sinks = append(sinks, recorder)
	} else {
		sinks = append(sinks, sink.NewConsole(os.Stdout))
	}

	kind, _ := cmd.Flags().GetString("sink")
	switch kind {
	case "stdout":
	case "http":
		url, _ := cmd.Flags().GetString("log-url")
		if url == "" {
			return nil, nil, fmt.Errorf("--sink http requires --log-url")
		}
		sinks = append(sinks, sink.NewHTTP(sink.HTTPConfig{URL: url, Logger: logger}))
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", kind)
	}

	if len(sinks) == 1 {
		return sinks[0], recorder, nil
	}
	return sinks, recorder, nil
}

func notifySlack(ctx context.Context, report *models.Report) {
	if cfg.Slack.WebhookURL == "" {
		logger.Warn("slack notification requested but no webhook configured")
		return
	}
	n := notifications.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel)
	if err := n.SendReport(ctx, report); err != nil {
		logger.Error("slack notification failed", zap.Error(err))
		return
	}
	logger.Info("slack notification sent", zap.String("risk", string(report.Risk())))
}

func init() {
	f := probeCmd.Flags()
	f.String("host", "embedded", "Host to probe: embedded or browser")
	f.String("ua", "", "Identifying string presented to (or overriding) the host")
	f.String("fw", "", "Firmware version marker, e.g. 9.00")
	f.Bool("wasm", false, "Back the embedded host's WebAssembly global with wasmer")
	f.String("devtools-url", "", "DevTools websocket URL of a running browser")
	f.Bool("launch", false, "Launch a local headless browser")
	f.String("page-url", "", "Page to open in the browser host")
	f.String("sink", "stdout", "Additional transcript sink: stdout or http")
	f.String("log-url", "", "Log server URL for --sink http")
	f.Bool("no-pace", false, "Emit the transcript without pacing delays")
	f.Bool("summary", false, "Print a summary table instead of the transcript")
	f.Bool("json", false, "Print the report as JSON")
	f.Bool("notify", false, "Send a Slack summary")
	f.Duration("timeout", 0, "Per-call timeout of the embedded host")

	rootCmd.AddCommand(probeCmd)
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/K0NGR3SS/ghostprobe/internal/logserver"
	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"github.com/K0NGR3SS/ghostprobe/internal/payload"
	"github.com/K0NGR3SS/ghostprobe/internal/probe"
	"github.com/K0NGR3SS/ghostprobe/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Deliver the probe to a device and collect its transcript",
	Long: `Starts the log server, points the bootstrap script at it, sends the bootstrap
and the heuristic script to the device, then waits for the firmware marker and
the complete transcript.

By default the heuristic is a loader that fetches the js/wasm build of the probe
(make wasm) from the log server's /probe/ route.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDeviceFlag(cmd)
		if cmd.Flags().Changed("port") {
			cfg.LogServer.Port, _ = cmd.Flags().GetInt("port")
		}
		if cfg.Device.Host == "" {
			host, port, err := ui.AskDevice("", cfg.Device.Port)
			if err != nil {
				return err
			}
			cfg.Device.Host, cfg.Device.Port = host, port
		}
		if save, _ := cmd.Flags().GetBool("save"); save {
			path, _ := cmd.Flags().GetString("config")
			if err := cfg.Save(path); err != nil {
				return err
			}
			logger.Info("device saved", zap.String("path", path),
				zap.String("host", cfg.Device.Host), zap.Int("port", cfg.Device.Port))
		}

		d, err := newDelivery(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		server := newLogServer()
		if _, err := server.Listen(); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Serve(gctx)
		})
		g.Go(func() error {
			defer cancel()
			res, err := d.run(gctx, server)
			if err != nil {
				return err
			}
			if err := ui.PrintSummary(os.Stdout, res.report); err != nil {
				return err
			}
			if notify, _ := cmd.Flags().GetBool("notify"); notify {
				notifySlack(gctx, res.report)
			}
			return nil
		})
		return g.Wait()
	},
}

// delivery is one staging run against a device.
type delivery struct {
	device            string // host:port of the payload port
	logURL            string // where the bootstrap points the device's log function
	bootstrap         []byte
	heuristic         []byte
	firmwareTimeout   time.Duration
	transcriptTimeout time.Duration
	logger            *zap.Logger
}

// staged is what a delivery learned from the device.
type staged struct {
	firmware    string
	kernelStage bool
	report      *models.Report
}

// newDelivery loads and checks the payloads named by the configuration.
func newDelivery(cmd *cobra.Command) (*delivery, error) {
	bootstrap, err := payload.Load(cfg.Payloads.Bootstrap, payload.BootstrapScript)
	if err != nil {
		return nil, err
	}
	heuristic, err := payload.Load(cfg.Payloads.Heuristic, payload.LoaderScript)
	if err != nil {
		return nil, err
	}
	if cfg.Payloads.Heuristic == "" {
		if err := payload.CheckProbeDir(cfg.Payloads.ProbeDir); err != nil {
			return nil, err
		}
	}
	if err := verifyPayload(cmd, heuristic); err != nil {
		return nil, err
	}

	return &delivery{
		device:            payload.DeviceAddr(cfg.Device.Host, cfg.Device.Port),
		logURL:            payload.LogServerURL(payload.LocalIP(), cfg.LogServer.Port),
		bootstrap:         bootstrap,
		heuristic:         heuristic,
		firmwareTimeout:   cfg.LogServer.FirmwareTimeout,
		transcriptTimeout: cfg.LogServer.TranscriptTimeout,
		logger:            logger,
	}, nil
}

// run sends both payloads, applies the firmware gate and collects the
// transcript. A transcript timeout still returns the firmware findings.
func (d *delivery) run(ctx context.Context, server *logserver.Server) (*staged, error) {
	bootstrap, err := payload.RewriteLogServer(d.bootstrap, d.logURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	d.logger.Info("log server", zap.String("url", d.logURL))

	if _, err := payload.Send(ctx, d.device, bootstrap); err != nil {
		return nil, err
	}
	pterm.Success.Printfln("Bootstrap sent to %s", d.device)

	if _, err := payload.Send(ctx, d.device, d.heuristic); err != nil {
		return nil, err
	}
	pterm.Success.Printfln("Heuristic sent to %s", d.device)

	fw, err := server.WaitForFirmware(ctx, d.firmwareTimeout)
	if err != nil {
		return nil, err
	}
	res := &staged{
		firmware:    fw,
		kernelStage: probe.KernelExploitable(probe.ParseFirmware(fw, true)),
	}
	ui.PrintGate(fw, res.kernelStage)

	lines, err := server.WaitForTranscript(ctx, d.transcriptTimeout)
	if err != nil {
		if errors.Is(err, logserver.ErrTimeout) {
			d.logger.Warn("transcript incomplete", zap.Int("lines", len(lines)))
		}
		return res, err
	}

	res.report, err = probe.ParseTranscript(lines)
	if err != nil {
		return res, fmt.Errorf("parse transcript: %w", err)
	}
	return res, nil
}

// splitDevice parses host or host:port. A malformed port is reported and
// left as zero.
func splitDevice(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return s, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return host, 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

func init() {
	f := stageCmd.Flags()
	f.String("device", "", "Device address, host or host:port")
	f.Int("port", logserver.DefaultPort, "Log server port")
	f.Bool("save", false, "Save the device address to the config file")
	f.String("sig", "", "Detached OpenPGP signature of the heuristic script")
	f.String("key", "", "Public key used to check --sig")
	f.Bool("notify", false, "Send a Slack summary")

	rootCmd.AddCommand(stageCmd)
}

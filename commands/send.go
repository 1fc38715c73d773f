package commands

import (
	"fmt"
	"os"

	"github.com/K0NGR3SS/ghostprobe/internal/payload"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sendCmd = &cobra.Command{
	Use:   "send <file>",
	Short: "Send a script to the device's payload port",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDeviceFlag(cmd)
		if cfg.Device.Host == "" {
			return fmt.Errorf("no device address: use --device or set device.host")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}
		if err := verifyPayload(cmd, data); err != nil {
			return err
		}

		if url, _ := cmd.Flags().GetString("log-server-url"); url != "" {
			data, err = payload.RewriteLogServer(data, url)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			logger.Info("log server rewritten", zap.String("url", url))
		}

		addr := payload.DeviceAddr(cfg.Device.Host, cfg.Device.Port)
		n, err := payload.Send(cmd.Context(), addr, data)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Sent %s (%d bytes) to %s", args[0], n, addr)
		return nil
	},
}

// applyDeviceFlag overlays --device, which accepts host or host:port.
func applyDeviceFlag(cmd *cobra.Command) {
	if !cmd.Flags().Changed("device") {
		return
	}
	dev, _ := cmd.Flags().GetString("device")
	host, port, err := splitDevice(dev)
	if err != nil {
		logger.Warn("ignoring device port", zap.String("device", dev), zap.Error(err))
	}
	cfg.Device.Host = host
	if port != 0 {
		cfg.Device.Port = port
	}
}

// verifyPayload checks the detached signature when one is given. Signatures
// are checked against the original file, before any rewrite.
func verifyPayload(cmd *cobra.Command, data []byte) error {
	sigPath, _ := cmd.Flags().GetString("sig")
	if sigPath == "" {
		return nil
	}
	keyPath, _ := cmd.Flags().GetString("key")
	if keyPath == "" {
		keyPath = cfg.Payloads.KeyFile
	}
	if keyPath == "" {
		return fmt.Errorf("--sig requires --key or payloads.key_file")
	}

	v := payload.NewVerifier()
	if err := v.AddKeyFile(keyPath); err != nil {
		return err
	}
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}
	fingerprint, err := v.Verify(data, sig)
	if err != nil {
		return err
	}
	logger.Info("payload signature verified", zap.String("signer", fingerprint))
	return nil
}

func init() {
	sendCmd.Flags().String("device", "", "Device address, host or host:port")
	sendCmd.Flags().String("sig", "", "Detached OpenPGP signature of the file")
	sendCmd.Flags().String("key", "", "Public key used to check --sig")
	sendCmd.Flags().String("log-server-url", "", "Rewrite the script's LOG_SERVER assignment to this URL")

	rootCmd.AddCommand(sendCmd)
}

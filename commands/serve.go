package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/K0NGR3SS/ghostprobe/internal/logserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the log server that receives device transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.LogServer.Port, _ = cmd.Flags().GetInt("port")
		}
		untilComplete, _ := cmd.Flags().GetBool("until-complete")

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
		if untilComplete {
			g.Go(func() error {
				defer cancel()
				lines, err := server.WaitForTranscript(gctx, cfg.LogServer.TranscriptTimeout)
				if err != nil {
					return err
				}
				logger.Info("transcript complete", zap.Int("lines", len(lines)))
				return nil
			})
		}
		return g.Wait()
	},
}

func newLogServer() *logserver.Server {
	return logserver.New(logserver.Config{
		Addr:     fmt.Sprintf(":%d", cfg.LogServer.Port),
		Logger:   logger,
		ProbeDir: cfg.Payloads.ProbeDir,
		OnLine: func(line string) {
			fmt.Fprintln(os.Stdout, line)
		},
	})
}

func init() {
	serveCmd.Flags().Int("port", logserver.DefaultPort, "Port to listen on")
	serveCmd.Flags().Bool("until-complete", false, "Exit once a complete transcript has arrived")

	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ai-voice-query-service/internal/app"
	"ai-voice-query-service/internal/config"
	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/observability/logging"
)

func main() {
	root := &cobra.Command{
		Use:           "voice-query",
		Short:         "Latency-bounded voice question answering for farmers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), askCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() *config.Config {
	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	return cfg
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, gRPC health and metrics servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := setup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			if err := application.Start(ctx); err != nil {
				application.Shutdown(context.Background())
				return err
			}

			<-ctx.Done()
			log.Info().Msg("Shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			application.Shutdown(shutdownCtx)
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	var (
		language string
		district string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "ask <audio-file>",
		Short: "Run one recorded question through the pipeline and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()
			cfg.Observability.LiveFeed = false

			audio, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer application.Shutdown(context.Background())

			res, runErr := application.Pipeline.Run(cmd.Context(), models.AudioQuery{
				Audio:      audio,
				MimeType:   mime.TypeByExtension(filepath.Ext(args[0])),
				Filename:   filepath.Base(args[0]),
				Language:   models.Language(language),
				DistrictID: district,
			})
			if res != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
				if out != "" && res.Audio != nil {
					if err := os.WriteFile(out, res.Audio.Data, 0o644); err != nil {
						return err
					}
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "en", "language hint: en, ta or ml")
	cmd.Flags().StringVarP(&district, "district", "d", "", "district id for location context")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write synthesized audio to this file")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hookfan/internal/api"
	"hookfan/internal/config"
	"hookfan/internal/ddp"
	"hookfan/internal/dispatch"
	"hookfan/internal/observability"
	"hookfan/internal/provider"
	"hookfan/internal/route"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "hookfan",
		Short: "Hookfan — social webhook fan-out relay",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(subscribeCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging)
			metrics := observability.New()
			verifyToken := api.NewVerifyToken()

			transports := map[string]dispatch.Transport{
				config.TransportHTTP: dispatch.NewHTTPTransport(cfg.Dispatch.Timeout),
			}
			if cfg.HasTransport(config.TransportDDP) {
				client := ddp.Dial(cfg.DDP.URL(), cfg.DDP.Reconnect, log)
				defer client.Close()
				transports[config.TransportDDP] = dispatch.NewDDPTransport(client, log)
			}

			registry := route.NewRegistry(cfg.Services)
			dispatcher := dispatch.New(registry, transports, cfg.Dispatch.Timeout, metrics, log)
			hook := api.NewWebhookHandler(cfg.Provider.AppSecret, verifyToken, cfg.Server.StrictStatus, dispatcher, log)

			server := api.NewServer(cfg.Server, hook, metrics, log)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server error")
				}
			}()

			if cfg.Provider.AutoSubscribe {
				go func() {
					fields := provider.FieldsFromServices(cfg.Services)
					if err := provider.Subscribe(context.Background(), cfg.Provider, verifyToken, fields); err != nil {
						log.Error().Err(err).Msg("subscription registration failed")
						return
					}
					log.Info().Strs("fields", fields).Msg("subscription registered")
				}()
			}

			log.Info().
				Str("version", version).
				Int("port", cfg.Server.Port).
				Int("services", len(cfg.Services)).
				Msg("Hookfan is running")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("shutting down...")

			if err := server.Shutdown(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			log.Info().Msg("Hookfan stopped")
			return nil
		},
	}
}

func subscribeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Register the webhook subscription with the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := setupLogger(cfg.Logging)

			token, _ := cmd.Flags().GetString("verify-token")
			if token == "" {
				return fmt.Errorf("--verify-token is required (the token of the running server)")
			}

			fields := provider.FieldsFromServices(cfg.Services)
			if err := provider.Subscribe(context.Background(), cfg.Provider, token, fields); err != nil {
				return fmt.Errorf("subscription registration failed: %w", err)
			}

			log.Info().Strs("fields", fields).Msg("subscription registered")
			return nil
		},
	}
	cmd.Flags().String("verify-token", "", "handshake verify token")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Hookfan v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

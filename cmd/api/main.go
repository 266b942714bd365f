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
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/midia/internal/config"
	internalhttp "github.com/gestaozabele/midia/internal/http"
	"github.com/gestaozabele/midia/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	uploader, err := buildUploader(cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	handler := internalhttp.NewRouter(cfg, uploader)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("provider", cfg.Storage.Provider).Msgf("API de mídia ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildUploader(cfg config.StorageConfig) (storage.Uploader, error) {
	switch cfg.Provider {
	case "github":
		return storage.NewGitHubUploader(storage.GitHubConfig{
			Token:   cfg.GitHub.Token,
			Repo:    cfg.GitHub.Repo,
			Branch:  cfg.GitHub.Branch,
			APIBase: cfg.GitHub.APIBase,
		})
	case "s3", "r2":
		return storage.NewS3Uploader(storage.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			KeyPrefix:    cfg.S3.KeyPrefix,
			PublicDomain: cfg.S3.PublicURL,
		})
	case "noop":
		return storage.NoopUploader{}, nil
	default:
		return nil, fmt.Errorf("provedor %s não suportado", cfg.Provider)
	}
}

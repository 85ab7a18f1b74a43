package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/docqa"
	"github.com/flarexio/docqa/embed"
	"github.com/flarexio/docqa/extract"
	"github.com/flarexio/docqa/llm"
	"github.com/flarexio/docqa/persistence/chromem"
	"github.com/flarexio/docqa/persistence/memory"
	"github.com/flarexio/docqa/vector"

	mcpE "github.com/flarexio/docqa/mcp"
	httpT "github.com/flarexio/docqa/transport/http"
	natsT "github.com/flarexio/docqa/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "docqa",
		Usage: "Document question answering service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the DocQA config directory",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL; NATS transport is disabled when empty",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "topic",
				Usage: "NATS subject prefix for the service endpoints",
				Value: "docqa",
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "http-addr",
				Usage:   "HTTP server address",
				Value:   ":5000",
				Sources: cli.EnvVars("HTTP_ADDR"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			path, err := configPath(cmd.String("path"))
			if err != nil {
				return ctx, err
			}

			// A missing .env is fine; flags and the environment still apply.
			err = godotenv.Load(filepath.Join(path, ".env"))
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return ctx, err
			}

			return ctx, nil
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func configPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".flarex", "docqa"), nil
}

func loadConfig(path string) (docqa.Config, error) {
	var cfg docqa.Config

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg.Normalize(), nil
		}

		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}

	return cfg.Normalize(), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	path, err := configPath(cmd.String("path"))
	if err != nil {
		return err
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if cfg.Embedder.Host == "" {
			cfg.Embedder.Host = host
		}

		if cfg.LLM.Host == "" {
			cfg.LLM.Host = host
		}
	}

	var builder vector.Builder
	switch cfg.Vector.Backend {
	case vector.BackendMemory:
		builder = memory.NewBuilder()
	case vector.BackendChromem:
		builder = chromem.NewChromemBuilder(cfg.Vector)
	default:
		return vector.ErrUnsupportedBackend
	}

	embedder := embed.NewCachedEmbedder(
		embed.NewOllamaEmbedder(cfg.Embedder),
		cfg.Embedder.Model,
		cfg.Embedder.CacheSize,
	)

	model := llm.NewOllamaClient(cfg.LLM)

	svc, err := docqa.NewService(ctx, cfg, builder, embedder, model, extract.Defaults())
	if err != nil {
		return err
	}

	svc = docqa.LoggingMiddleware(log)(svc)
	defer svc.Close()

	endpoints := docqa.MakeEndpoints(svc)

	// Add NATS Transport
	if natsURL := cmd.String("nats"); natsURL != "" {
		opts := []nats.Option{
			nats.Name("DocQA Server"),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "docqa",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup(cmd.String("topic"))
		natsT.AddEndpoints(root, endpoints)
	}

	// Add HTTP Transport
	if cmd.Bool("http") {
		r := gin.Default()
		r.MaxMultipartMemory = cfg.MaxFileSize

		httpT.AddRouters(r, endpoints, cfg.MaxFileSize)
		httpT.AddStreamableRouters(r, mcpE.MakeEndpoints(svc))

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

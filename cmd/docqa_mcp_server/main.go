package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/flarexio/docqa"

	mcpE "github.com/flarexio/docqa/mcp"
	natsT "github.com/flarexio/docqa/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "docqa_mcp_server",
		Usage: "DocQA MCP Server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   nats.DefaultURL,
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "topic",
				Usage: "NATS subject prefix of the DocQA service",
				Value: "docqa",
			},
			&cli.DurationFlag{
				Name:  "ask-timeout",
				Usage: "Upper bound for a single question",
				Value: docqa.DefaultAnswerTimeout + 10*time.Second,
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []nats.Option{
		nats.Name("DocQA MCP Server"),
	}

	if creds := cmd.String("nats-creds"); creds != "" {
		opts = append(opts, nats.UserCredentials(creds))
	}

	nc, err := nats.Connect(cmd.String("nats"), opts...)
	if err != nil {
		return err
	}
	defer nc.Drain()

	endpoints := natsT.MakeEndpoints(nc, cmd.String("topic"), cmd.Duration("ask-timeout"))

	var svc docqa.Service
	svc = docqa.ProxyMiddleware(endpoints)(svc)

	s := NewStdioMCPServer(os.Stdin, os.Stdout)
	for method, endpoint := range mcpE.MakeEndpoints(svc) {
		s.AddEndpoint(method, endpoint)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- s.Listen(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-quit:
		cancel()
		return nil

	case err := <-errs:
		return err
	}
}

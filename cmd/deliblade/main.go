package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/deliblade"
	"github.com/flarexio/deliblade/persistence/chromem"
	"github.com/flarexio/deliblade/persistence/inmem"
	"github.com/flarexio/deliblade/provider"
	"github.com/flarexio/deliblade/provider/openai"
	"github.com/flarexio/deliblade/provider/openrouter"
	"github.com/flarexio/deliblade/provider/stripe"

	mcpE "github.com/flarexio/deliblade/mcp"
	httpT "github.com/flarexio/deliblade/transport/http"
	natsT "github.com/flarexio/deliblade/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "deliblade",
		Usage: "Deliblade service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the Deliblade service",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
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
	godotenv.Load()

	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".flarex", "deliblade")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return err
	}
	defer f.Close()

	var cfg deliblade.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return err
	}

	cfg.Vector.Path = filepath.Join(path, "vectors")

	items, err := loadCatalog(filepath.Join(path, "catalog.yaml"))
	if err != nil {
		return err
	}

	vectorDB, err := chromem.NewChromemVectorDB(cfg.Vector)
	if err != nil {
		return err
	}

	embedder, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Provider.Embeddings.BaseURL,
		APIKeyEnv: cfg.Provider.Embeddings.APIKeyEnv,
		Model:     cfg.Provider.Embeddings.Model,
		Timeout:   cfg.Provider.Embeddings.Timeout.Duration(),
	})

	if err != nil {
		return err
	}

	deps := deliblade.Dependencies{
		Catalog:    inmem.NewCatalog(items...),
		Orders:     inmem.NewOrderStore(),
		Vector:     vectorDB,
		Embedder:   embedder,
		Classifier: provider.NewKeywordClassifier(),
	}

	// The completer and payments provider are optional; the agent
	// degrades to templated replies and ordering stays read-only.
	completer, err := openrouter.NewClient(openrouter.Config{
		BaseURL:   cfg.Provider.LLM.BaseURL,
		APIKeyEnv: cfg.Provider.LLM.APIKeyEnv,
		Model:     cfg.Provider.LLM.Model,
		Timeout:   cfg.Provider.LLM.Timeout.Duration(),
	})

	if err != nil {
		log.Warn("completer disabled", zap.Error(err))
	} else {
		deps.Completer = completer
	}

	payments, err := stripe.NewClient(stripe.Config{
		BaseURL:   cfg.Provider.Payments.BaseURL,
		APIKeyEnv: cfg.Provider.Payments.APIKeyEnv,
		Timeout:   cfg.Provider.Payments.Timeout.Duration(),
	})

	if err != nil {
		log.Warn("payments disabled", zap.Error(err))
	} else {
		deps.Payments = payments
	}

	svc, err := deliblade.NewService(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = deliblade.LoggingMiddleware(log)(svc)

	endpoints := deliblade.EndpointSet{
		RouteMessage:    deliblade.RouteMessageEndpoint(svc),
		Search:          deliblade.SearchEndpoint(svc),
		LookupInventory: deliblade.LookupInventoryEndpoint(svc),
		RebuildIndex:    deliblade.RebuildIndexEndpoint(svc),
		CreateOrder:     deliblade.CreateOrderEndpoint(svc),
		IssuePayment:    deliblade.IssuePaymentEndpoint(svc),
		FinalizeOrder:   deliblade.FinalizeOrderEndpoint(svc),
		CancelOrder:     deliblade.CancelOrderEndpoint(svc),
		GetOrder:        deliblade.GetOrderEndpoint(svc),
		ListOrders:      deliblade.ListOrdersEndpoint(svc),
	}

	// Add NATS Transport
	if natsURL := cmd.String("nats"); natsURL != "" {
		nc, err := nats.Connect(natsURL,
			nats.Name("Deliblade Server"),
		)

		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "deliblade",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("deliblade")
		natsT.AddEndpoints(root, endpoints)
	}

	httpEnabled := cmd.Bool("http")
	if httpEnabled {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)

		endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
		endpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
		endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
		endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
		endpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
		httpT.AddStreamableRouters(r, endpoints)

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

func loadCatalog(path string) ([]*deliblade.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc struct {
		Items []*deliblade.Item `yaml:"items"`
	}

	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, err
	}

	return doc.Items, nil
}

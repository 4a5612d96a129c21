package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zuorasync/backend/internal/infrastructure/commerce"
	"github.com/zuorasync/backend/internal/infrastructure/config"
	"github.com/zuorasync/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		logLevel string
		timeout  time.Duration
	)

	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout for the command")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewForEnvironment(cfg.App.Env, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ct, err := commerce.NewCommercetoolsAdapter(&commerce.CommercetoolsConfig{
		ProjectKey:     cfg.Commerce.ProjectKey,
		ClientID:       cfg.Commerce.ClientID,
		ClientSecret:   cfg.Commerce.ClientSecret,
		Scopes:         cfg.Commerce.Scopes,
		APIURL:         cfg.Commerce.APIURL,
		AuthURL:        cfg.Commerce.AuthURL,
		TimeoutSeconds: cfg.Commerce.TimeoutSeconds,
	}, log)
	if err != nil {
		log.Fatal("Failed to create commerce adapter", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	key := cfg.Connector.SubscriptionKey

	switch command {
	case "post-deploy":
		if cfg.Connector.GCPProjectID == "" || cfg.Connector.TopicName == "" {
			log.Fatal("GCP project and topic are required for post-deploy",
				zap.String("project", cfg.Connector.GCPProjectID),
				zap.String("topic", cfg.Connector.TopicName),
			)
		}
		sub, err := ct.ReplaceSubscription(ctx, key, commerce.PubSubDestination{
			ProjectID: cfg.Connector.GCPProjectID,
			Topic:     cfg.Connector.TopicName,
		})
		if err != nil {
			log.Fatal("Subscription setup failed", zap.String("key", key), zap.Error(err))
		}
		log.Info("Subscription registered",
			zap.String("key", sub.Key),
			zap.String("id", sub.ID),
			zap.String("topic", cfg.Connector.TopicName),
		)

	case "pre-undeploy":
		if err := ct.DeleteSubscription(ctx, key); err != nil {
			log.Fatal("Subscription removal failed", zap.String("key", key), zap.Error(err))
		}
		log.Info("Subscription removed", zap.String("key", key))

	case "status":
		sub, err := ct.GetSubscription(ctx, key)
		if err != nil {
			log.Fatal("Failed to get subscription", zap.String("key", key), zap.Error(err))
		}
		if sub == nil {
			log.Info("No subscription registered", zap.String("key", key))
			return
		}
		log.Info("Subscription registered",
			zap.String("key", sub.Key),
			zap.String("id", sub.ID),
			zap.Int64("version", sub.Version),
		)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Billing Sync Connector Tool

Usage:
  connector [flags] <command>

Commands:
  post-deploy     Create or replace the commercetools subscription that
                  publishes customer, order and product messages to Pub/Sub
  pre-undeploy    Delete the subscription, ignoring a missing one
  status          Show the registered subscription

Flags:
  -log-level string     Log level: debug, info, warn, error (default: info)
  -timeout duration     Overall timeout for the command (default: 30s)

Environment Variables:
  CTP_PROJECT_KEY, CTP_CLIENT_ID, CTP_CLIENT_SECRET, CTP_SCOPE,
  CTP_API_URL, CTP_AUTH_URL
  CONNECT_GCP_PROJECT_ID, CONNECT_GCP_TOPIC_NAME

Examples:
  # Register the subscription after deployment
  connector post-deploy

  # Remove it before undeploying
  connector pre-undeploy`)
}

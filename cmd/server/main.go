package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avvvet/community-intent/internal/answer"
	"github.com/avvvet/community-intent/internal/classifier"
	"github.com/avvvet/community-intent/internal/config"
	"github.com/avvvet/community-intent/internal/dispatch"
	"github.com/avvvet/community-intent/internal/eventstore"
	"github.com/avvvet/community-intent/internal/geo"
	"github.com/avvvet/community-intent/internal/handlers"
	"github.com/avvvet/community-intent/internal/llm"
	"github.com/avvvet/community-intent/internal/location"
	"github.com/avvvet/community-intent/internal/logging"
	"github.com/avvvet/community-intent/internal/matcher"
	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/notify"
	"github.com/avvvet/community-intent/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		log.Fatalf("❌ %v", err)
	}
}

// run wires the service and blocks until ctx is cancelled. Every failure is
// returned so deferred cleanup runs before the process exits.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("🚀 Starting assistant intent service",
		zap.String("service", cfg.ServiceName),
		zap.String("nats_url", cfg.NatsURL),
		zap.String("subject", cfg.NatsRequestSubject),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	metricsServer := serveMetrics(cfg.MetricsAddr, registry, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("⚠️ Error stopping metrics server", zap.Error(err))
		}
	}()

	// Classifier tiers, most capable first
	var tiers []classifier.Classifier
	var answerProvider llm.Provider
	if cfg.AnthropicAPIKey != "" {
		primary, err := llm.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize Anthropic provider: %w", err)
		}
		tiers = append(tiers, classifier.NewLLMClassifier(primary))
		answerProvider = primary

		if cfg.AnthropicFallbackModel != "" && cfg.AnthropicFallbackModel != cfg.AnthropicModel {
			fallback, err := llm.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicFallbackModel, cfg.AnthropicTimeout)
			if err != nil {
				return fmt.Errorf("failed to initialize Anthropic fallback provider: %w", err)
			}
			tiers = append(tiers, classifier.NewLLMClassifier(fallback))
		}
	}
	if cfg.OpenAIAPIKey != "" {
		openai, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AnthropicTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenAI provider: %w", err)
		}
		tiers = append(tiers, classifier.NewLLMClassifier(openai))
		if answerProvider == nil {
			answerProvider = openai
		}
	}
	chain := classifier.NewChain(logging.Component(logger, "classifier"), m, tiers...)
	logger.Info("🤖 Classifier ready", zap.Int("llm_tiers", len(tiers)))

	// Location memory is optional; without it update_location fails softly
	var locations location.Store
	redisStore, err := location.NewRedisStore(cfg.RedisURL, cfg.LocationTTL)
	if err != nil {
		logger.Warn("⚠️ Redis unavailable, stored locations disabled", zap.Error(err))
	} else {
		defer redisStore.Close()
		locations = redisStore
		logger.Info("💾 Redis connected")
	}

	landmarks, err := geo.LoadLandmarks(cfg.LandmarksFile)
	if err != nil {
		return fmt.Errorf("failed to load landmarks: %w", err)
	}
	locator := geo.NewLocator(
		geo.NewNominatimGeocoder(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout),
		landmarks,
		cfg.LandmarkRadiusKm,
		logging.Component(logger, "geo"),
		m,
	)

	notifier := notify.NewService(logging.Component(logger, "notify"), m,
		notify.NewTwilioGateway(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.EmergencyPhoneNumber, cfg.GatewayTimeout),
		notify.NewResendGateway(cfg.ResendAPIKey, cfg.AlertEmailFrom, cfg.AlertEmailTo, cfg.GatewayTimeout),
	)
	if !cfg.TwilioConfigured() {
		logger.Warn("⚠️ Twilio not configured, emergency calls will not be placed")
	}

	events := eventstore.NewHTTPStore(cfg.EventsAPIURL, cfg.EventsAPITimeout, m)

	dispatcher := dispatch.New(dispatch.Deps{
		Events:    events,
		Locations: locations,
		Locator:   locator,
		Notifier:  notifier,
		Answers:   answer.NewGenerator(answerProvider, logging.Component(logger, "answer")),
		Matcher:   matcher.New(cfg.MatchThreshold),
		Logger:    logging.Component(logger, "dispatch"),
		Metrics:   m,
	})

	handler := handlers.NewCommandHandler(chain, dispatcher, events, logging.Component(logger, "handler"))

	natsTransport, err := transport.NewNATSTransport(transport.Options{
		URL:            cfg.NatsURL,
		Name:           cfg.ServiceName,
		Subject:        cfg.NatsRequestSubject,
		QueueGroup:     cfg.ServiceName,
		ConnectTimeout: cfg.NatsTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}, handler, logging.Component(logger, "transport"))
	if err != nil {
		return fmt.Errorf("failed to initialize NATS transport: %w", err)
	}
	defer func() {
		if err := natsTransport.Close(); err != nil {
			logger.Warn("⚠️ Error closing NATS transport", zap.Error(err))
		}
	}()

	if err := natsTransport.Start(); err != nil {
		return fmt.Errorf("failed to start NATS transport: %w", err)
	}

	logger.Info("✅ Assistant intent service is running", zap.String("metrics_addr", cfg.MetricsAddr))

	<-ctx.Done()
	logger.Info("🛑 Received signal, shutting down")
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return server
}

// cmd/flow-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"muni-flows/internal/common/aws"
	"muni-flows/internal/common/config"
	"muni-flows/internal/common/database"
	"muni-flows/internal/common/logger"
	"muni-flows/internal/common/observability"
	"muni-flows/internal/flows/booking"
	"muni-flows/internal/flows/license"
	"muni-flows/internal/flows/onboarding"
	"muni-flows/internal/flows/permit"
	"muni-flows/internal/notify"
	"muni-flows/internal/orchestrator"
	"muni-flows/internal/refdata"
	"muni-flows/internal/search"
	"muni-flows/internal/service"
	"muni-flows/internal/store"
	"muni-flows/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("Starting flow manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// infrastructure comes up with backoff: during deploys the databases
	// are often a few seconds behind the service
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, "postgres", zapLogger, func() error {
		var connErr error
		pg, connErr = database.NewPostgres(cfg.Database.Postgres)
		if connErr != nil {
			return connErr
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		zapLogger.Fatal("Postgres unavailable", zap.Error(err))
	}
	defer pg.Close()

	var rdb *database.RedisClient
	err = retryWithBackoff(ctx, "redis", zapLogger, func() error {
		var connErr error
		rdb, connErr = database.NewRedis(cfg.Database.Redis)
		if connErr != nil {
			return connErr
		}
		return rdb.Ping(ctx)
	})
	if err != nil {
		zapLogger.Fatal("Redis unavailable", zap.Error(err))
	}
	defer rdb.Close()

	recordStore := store.NewStore(pg.GetDB(), log)

	var indexer orchestrator.Indexer
	var searchIndexer *search.Indexer
	if cfg.Search.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(ctx, "elasticsearch", zapLogger, func() error {
			var connErr error
			es, connErr = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if connErr != nil {
				return connErr
			}
			return es.Ping()
		})
		if err != nil {
			zapLogger.Fatal("Elasticsearch unavailable", zap.Error(err))
		}
		searchIndexer = search.NewIndexer(es.Client, cfg.Search.Index, log)
		indexer = searchIndexer
	}

	notifier := buildNotifier(ctx, cfg, log, zapLogger)

	s3Client, err := aws.NewS3Client(ctx, cfg.Storage.Region, cfg.Storage.Bucket)
	if err != nil {
		zapLogger.Fatal("S3 client init failed", zap.Error(err))
	}

	refCache := refdata.NewCache(rdb.GetClient(), refdata.NewPostgresSource(pg.GetDB()), log)
	orch := orchestrator.New(recordStore, notifier, indexer, obs, log)
	bookingHandler := booking.NewHandler(recordStore, refCache, notifier, log)

	reg := registry.New()
	reg.Register(onboarding.FlowID, onboarding.NewFlow)
	reg.Register(license.FlowID, license.NewFlow)
	reg.Register(permit.FlowID, permit.NewFlow)
	reg.Register(booking.FlowID, booking.NewFlow)
	if err := reg.LoadDefinitions(cfg.Registry.Path); err != nil {
		zapLogger.Fatal("Flow catalog invalid", zap.Error(err))
	}
	for _, def := range reg.List() {
		log.Info("Flow registered", map[string]interface{}{
			"flowId":  def.ID,
			"enabled": def.Enabled,
		})
	}

	svc := service.New(reg, orch, bookingHandler, refCache, s3Client, cfg, log)

	srv := startOpsServer(zapLogger, reg, svc, searchIndexer)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down", nil)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("Ops server shutdown failed", zap.Error(err))
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, zapLogger *zap.Logger) *notify.Notifier {
	var email notify.EmailSender
	var sms notify.SMSSender

	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLogger.Fatal("SES client init failed", zap.Error(err))
		}
		email = sesClient
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLogger.Fatal("SNS client init failed", zap.Error(err))
		}
		sms = snsClient
	}

	return notify.NewNotifier(email, sms, cfg.Notifications.Email.FromEmail, log)
}

func startOpsServer(zapLogger *zap.Logger, reg *registry.Registry, svc *service.Service, searchIndexer *search.Indexer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/flows", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reg.List())
	})
	mux.HandleFunc("/facilities", func(w http.ResponseWriter, r *http.Request) {
		municipality := r.URL.Query().Get("municipality")
		if municipality == "" {
			http.Error(w, "municipality is required", http.StatusBadRequest)
			return
		}
		facilities, err := svc.Facilities(r.Context(), municipality)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(facilities)
	})
	mux.HandleFunc("/fees", func(w http.ResponseWriter, r *http.Request) {
		municipality := r.URL.Query().Get("municipality")
		flowID := r.URL.Query().Get("flow")
		if municipality == "" || flowID == "" {
			http.Error(w, "municipality and flow are required", http.StatusBadRequest)
			return
		}
		fees, err := svc.FeeSchedule(r.Context(), municipality, flowID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if fees == nil {
			http.Error(w, "no fee schedule", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(fees)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if searchIndexer == nil {
			http.Error(w, "search is disabled", http.StatusServiceUnavailable)
			return
		}
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		hits, err := searchIndexer.Search(r.Context(), search.Query{
			Text:           r.URL.Query().Get("q"),
			FlowID:         r.URL.Query().Get("flow"),
			MunicipalityID: r.URL.Query().Get("municipality"),
			Status:         r.URL.Query().Get("status"),
			Size:           size,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hits)
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/heap", pprof.Handler("heap").ServeHTTP)

	srv := &http.Server{Addr: ":9090", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("Ops server failed", zap.Error(err))
		}
	}()
	return srv
}

func retryWithBackoff(ctx context.Context, name string, zapLogger *zap.Logger, connect func() error) error {
	const maxAttempts = 5
	backoff := time.Second

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = connect(); err == nil {
			return nil
		}
		zapLogger.Warn("Connection attempt failed",
			zap.String("target", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", name, maxAttempts, err)
}

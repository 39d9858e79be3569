package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/brezcode/brezcode-platform-sub008/config"
	"github.com/brezcode/brezcode-platform-sub008/internal/api/handlers"
	"github.com/brezcode/brezcode-platform-sub008/internal/api/middleware"
	"github.com/brezcode/brezcode-platform-sub008/internal/api/routes"
	"github.com/brezcode/brezcode-platform-sub008/internal/cache"
	"github.com/brezcode/brezcode-platform-sub008/internal/catalog"
	"github.com/brezcode/brezcode-platform-sub008/internal/logger"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/llm"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/scoring"
	"github.com/brezcode/brezcode-platform-sub008/internal/providers/stt"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories"
	"github.com/brezcode/brezcode-platform-sub008/internal/repositories/memory"
	mongorepo "github.com/brezcode/brezcode-platform-sub008/internal/repositories/mongo"
	pgrepo "github.com/brezcode/brezcode-platform-sub008/internal/repositories/postgres"
	sqliterepo "github.com/brezcode/brezcode-platform-sub008/internal/repositories/sqlite"
	"github.com/brezcode/brezcode-platform-sub008/internal/services"
	"github.com/brezcode/brezcode-platform-sub008/internal/storage"
	"github.com/brezcode/brezcode-platform-sub008/internal/workers"
)

type stores struct {
	sessions  repositories.SessionRepository
	transfers repositories.TransferRepository
	requests  repositories.RequestLog
	learned   repositories.LearnedResponseRepository
	knowledge repositories.KnowledgeRepository
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	lg := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, lg)
	stop()
	if err != nil {
		lg.WithError(err).Fatal("server stopped")
	}
}

// run owns every client it opens; all of them are closed before it returns.
func run(ctx context.Context, cfg *config.AppConfig, lg *logrus.Logger) error {
	var err error
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if rdb, err = config.NewRedis(ctx, cfg.RedisAddr); err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		lg.Info("redis connected")
	}

	st, err := openStores(ctx, cfg, lg, &closers)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}

	gen, embedder, err := newGenerator(ctx, cfg, &closers)
	if err != nil {
		return fmt.Errorf("llm init: %w", err)
	}
	var scorer scoring.Scorer = scoring.Heuristic{}
	if cfg.Scorer == "llm" {
		scorer = scoring.NewLLMScorer(gen, lg)
	}

	var bucket *storage.GCSBucket
	if cfg.GCSBucket != "" {
		if bucket, err = storage.NewGCSBucket(ctx, cfg.GCSBucket, cfg.GoogleCredentialsFile); err != nil {
			return fmt.Errorf("gcs init: %w", err)
		}
		closers = append(closers, func() { _ = bucket.Close() })
	}

	cat, err := loadCatalog(ctx, cfg, bucket)
	if err != nil {
		return fmt.Errorf("scenario catalog: %w", err)
	}
	lg.WithField("scenarios", len(cat.List())).Info("scenario catalog loaded")

	var transcriber stt.Transcriber
	if gs, err := stt.NewGoogleSpeech(ctx, cfg.GoogleCredentialsFile); err != nil {
		lg.WithError(err).Warn("speech client unavailable; voice corrections disabled")
	} else {
		closers = append(closers, func() { _ = gs.Close() })
		transcriber = gs
	}

	var learnedCache cache.Cache = cache.NewMemoryCache()
	var events services.EventPublisher = services.NopEvents{}
	if rdb != nil {
		learnedCache = cache.NewRedisCache(rdb, "learned:")
		events = services.NewRedisEvents(rdb)
	}

	locks := services.NewSessionLocks()
	learned := services.NewLearnedStore(st.learned, learnedCache, cfg.LearnedCacheTTL, lg)

	bridge := services.NewTransferBridge(st.transfers,
		services.NewKnowledgeBasePublisher(st.knowledge, embedder, lg),
		cat,
		services.TransferConfig{
			TargetPlatform:  cfg.TargetPlatform,
			EligibleAvatars: cfg.EligibleAvatars,
			Threshold:       cfg.HighQualityThreshold,
		}, lg)
	var dispatcher services.TransferDispatcher = &services.InlineDispatcher{Bridge: bridge, Logger: lg}
	if cfg.TransferMode == "stream" {
		dispatcher = &services.StreamDispatcher{Redis: rdb, Fallback: dispatcher, Logger: lg}
		pool := &workers.TransferWorkerPool{Redis: rdb, Sessions: st.sessions, Bridge: bridge, Logger: lg}
		if err := pool.Start(ctx); err != nil {
			return fmt.Errorf("transfer workers: %w", err)
		}
	}

	var archiver *services.TranscriptArchiver
	if cfg.TranscriptArchiveEnabled {
		archiver = services.NewTranscriptArchiver(bucket, "transcripts/")
	}

	sessionSvc := services.NewSessionService(services.SessionDeps{
		Sessions:   st.sessions,
		Catalog:    cat,
		Locks:      locks,
		Dispatcher: dispatcher,
		Events:     events,
		Archiver:   archiver,
		Logger:     lg,
	})
	engine := services.NewTurnEngine(services.TurnEngineDeps{
		Sessions:          st.sessions,
		Catalog:           cat,
		Learned:           learned,
		Generator:         gen,
		Scorer:            scorer,
		Locks:             locks,
		Requests:          st.requests,
		Events:            events,
		Logger:            lg,
		GenerationTimeout: cfg.GenerationTimeout,
		DedupWindow:       cfg.DedupWindow,
		ChoicesEnabled:    cfg.ChoicesEnabled,
	})
	feedback := services.NewFeedbackService(services.FeedbackDeps{
		Sessions:          st.sessions,
		Catalog:           cat,
		Learned:           learned,
		Generator:         gen,
		Scorer:            scorer,
		Transcriber:       transcriber,
		Locks:             locks,
		Requests:          st.requests,
		Events:            events,
		Logger:            lg,
		GenerationTimeout: cfg.GenerationTimeout,
		DedupWindow:       cfg.DedupWindow,
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(lg))
	routes.RegisterRoutes(r, routes.Deps{
		Scenario: handlers.NewScenarioHandler(cat),
		Session:  handlers.NewSessionHandler(sessionSvc, engine),
		Feedback: handlers.NewFeedbackHandler(feedback),
		WS:       handlers.NewWSHandler(sessionSvc, engine, rdb),
		JWT: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		lg.WithField("port", cfg.Port).Info("http server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.WithError(err).Warn("http shutdown incomplete")
	}
	return nil
}

// openStores picks Mongo for sessions when MONGO_URI is set and Postgres for
// learned responses when POSTGRES_URI is set, falling back to process memory
// and the SQLite file respectively.
func openStores(ctx context.Context, cfg *config.AppConfig, lg *logrus.Logger, closers *[]func()) (*stores, error) {
	st := &stores{
		sessions:  memory.NewSessionRepo(),
		transfers: memory.NewTransferRepo(),
		requests:  memory.NewRequestLog(),
		knowledge: memory.NewKnowledgeRepo(),
	}

	if cfg.MongoURI != "" {
		client, err := config.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = client.Disconnect(context.Background()) })
		db := client.Database(cfg.MongoDB)
		if err := config.EnsureMongoIndexes(ctx, db); err != nil {
			return nil, err
		}
		st.sessions = mongorepo.NewSessionRepo(db)
		st.transfers = mongorepo.NewTransferRepo(db)
		st.requests = mongorepo.NewRequestLogRepo(db)
		lg.Info("mongodb connected")
	} else {
		lg.Warn("MONGO_URI not set; sessions are kept in memory")
	}

	if cfg.PostgresURI != "" {
		db, err := config.NewPostgres(cfg.PostgresURI)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			*closers = append(*closers, func() { _ = sqlDB.Close() })
		}
		if err := config.MigratePostgres(db); err != nil {
			return nil, err
		}
		st.learned = pgrepo.NewLearnedResponseRepo(db)
		st.knowledge = pgrepo.NewKnowledgeRepo(db)
		lg.Info("postgresql connected")
		return st, nil
	}

	sqlDB, err := config.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, func() { _ = sqlDB.Close() })
	if st.learned, err = sqliterepo.NewLearnedResponseRepo(sqlDB); err != nil {
		return nil, err
	}
	lg.WithField("path", cfg.SQLitePath).Info("learned responses stored in sqlite")
	return st, nil
}

func newGenerator(ctx context.Context, cfg *config.AppConfig, closers *[]func()) (llm.TextGenerator, llm.Embedder, error) {
	var embedder llm.Embedder
	if cfg.OpenAIAPIKey != "" {
		o, err := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIEmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		embedder = o
		if cfg.LLMProvider == "openai" {
			return o, embedder, nil
		}
	}

	v, err := llm.NewVertexGemini(ctx, cfg.VertexProjectID, cfg.VertexLocation, cfg.VertexModel)
	if err != nil {
		return nil, nil, err
	}
	*closers = append(*closers, func() { _ = v.Close() })
	return v, embedder, nil
}

func loadCatalog(ctx context.Context, cfg *config.AppConfig, bucket *storage.GCSBucket) (catalog.Catalog, error) {
	if cfg.ScenarioCatalogObject == "" || bucket == nil {
		return catalog.Default()
	}
	rc, err := bucket.Open(ctx, cfg.ScenarioCatalogObject)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return catalog.Load(rc)
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/compbot/internal/ai"
	"github.com/xxxsen/compbot/internal/chunker"
	"github.com/xxxsen/compbot/internal/config"
	"github.com/xxxsen/compbot/internal/docstore"
	"github.com/xxxsen/compbot/internal/handler"
	"github.com/xxxsen/compbot/internal/ingest"
	"github.com/xxxsen/compbot/internal/job"
	"github.com/xxxsen/compbot/internal/lark"
	"github.com/xxxsen/compbot/internal/middleware"
	"github.com/xxxsen/compbot/internal/news"
	"github.com/xxxsen/compbot/internal/repo"
	"github.com/xxxsen/compbot/internal/schedule"
	"github.com/xxxsen/compbot/internal/service"
)

func main() {
	// Local deployments keep API keys in a .env file; missing is fine.
	_ = godotenv.Load()

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "compbot",
		Short: "compliance answering and news digest bot",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the compbot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(configPath)
			if err != nil {
				return err
			}
			defer app.db.Close()
			return runServer(app)
		},
	}

	var corpusDir string
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "load the document corpus into the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(configPath, withCorpusDir(corpusDir))
			if err != nil {
				return err
			}
			defer app.db.Close()
			count, err := app.ingestSvc.Reload(cmd.Context())
			if err != nil {
				return err
			}
			logutil.GetLogger(cmd.Context()).Info("ingest finished", zap.Int("documents", count))
			return nil
		},
	}
	ingestCmd.Flags().StringVar(&corpusDir, "dir", "", "load documents from this directory instead of the configured doc store")

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "answer a compliance question from the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(configPath)
			if err != nil {
				return err
			}
			defer app.db.Close()
			answer := app.answerSvc.Answer(cmd.Context(), args[0])
			out, err := json.MarshalIndent(answer, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, ingestCmd, askCmd)
	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

type app struct {
	cfg       *config.Config
	db        *sql.DB
	indexSvc  *service.IndexService
	answerSvc *service.AnswerService
	ingestSvc *service.IngestService
	newsSvc   *service.NewsService
	authSvc   *service.AuthService
	bot       *lark.Bot
}

type setupOption func(*config.Config)

// withCorpusDir points the doc store at a local directory, overriding the
// configured backend for one-off CLI ingests.
func withCorpusDir(dir string) setupOption {
	return func(cfg *config.Config) {
		if dir == "" {
			return
		}
		cfg.DocStore = config.DocStoreConfig{
			Type: "local",
			Data: map[string]interface{}{"dir": dir},
		}
	}
}

func setup(configPath string, opts ...setupOption) (*app, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	db, err := repo.Open(cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(provider, cfg.AI.ChatModel)
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)

	tokenizer, err := chunker.NewTiktoken(cfg.Chunker.Encoding)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}
	ck, err := chunker.New(tokenizer, cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	store, err := docstore.New(cfg.DocStore)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init doc store: %w", err)
	}

	aiTimeout := time.Duration(cfg.AI.Timeout) * time.Second
	chunkRepo := repo.NewChunkRepo(db)
	indexSvc := service.NewIndexService(chunkRepo, embedder, ck, cfg.Index.Collection, aiTimeout)
	answerSvc := service.NewAnswerService(indexSvc, generator, cfg.Index.TopK, aiTimeout)
	ingestSvc := service.NewIngestService(ingest.NewLoader(store), store, indexSvc)
	authSvc := service.NewAuthService(
		cfg.Admin.User,
		cfg.Admin.PasswordHash,
		[]byte(cfg.JWTSecret),
		time.Hour*time.Duration(cfg.JWTTTLHours),
	)

	client := &http.Client{Timeout: 15 * time.Second}
	fetcher := news.NewFetcher(client, cfg.News.NewsAPIKey, cfg.News.NewsDataKey, cfg.News.Country)
	webhook, err := lark.NewWebhookClient(client, cfg.Lark.WebhookURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init lark webhook: %w", err)
	}
	newsSvc := service.NewNewsService(fetcher, generator, webhook, cfg.News.Sources, aiTimeout)
	bot := lark.NewBot(client, cfg.Lark.AppID, cfg.Lark.AppSecret, cfg.Lark.BaseURL)

	return &app{
		cfg:       cfg,
		db:        db,
		indexSvc:  indexSvc,
		answerSvc: answerSvc,
		ingestSvc: ingestSvc,
		newsSvc:   newsSvc,
		authSvc:   authSvc,
		bot:       bot,
	}, nil
}

func runServer(app *app) error {
	cfg := app.cfg
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("collection", cfg.Index.Collection),
	)

	// An empty spec disables the job.
	scheduler := schedule.NewCronScheduler()
	if cfg.Jobs.NewsDigestSpec != "" {
		if err := scheduler.AddJob(job.NewNewsDigestJob(app.newsSvc), cfg.Jobs.NewsDigestSpec); err != nil {
			return fmt.Errorf("schedule news digest: %w", err)
		}
	}
	if cfg.Jobs.IndexStatsSpec != "" {
		if err := scheduler.AddJob(job.NewIndexStatsJob(app.indexSvc), cfg.Jobs.IndexStatsSpec); err != nil {
			return fmt.Errorf("schedule index stats: %w", err)
		}
	}

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(app.authSvc),
		Query:     handler.NewQueryHandler(app.answerSvc),
		Ingest:    handler.NewIngestHandler(app.ingestSvc, app.indexSvc),
		Stats:     handler.NewStatsHandler(app.indexSvc, scheduler),
		News:      handler.NewNewsHandler(app.newsSvc),
		Lark:      handler.NewLarkHandler(app.answerSvc, app.newsSvc, app.bot, cfg.Lark.VerificationToken, cfg.Lark.BotName),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

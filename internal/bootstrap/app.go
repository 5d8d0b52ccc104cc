package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/agent"
	"knowledge-backend/internal/agent/dialogflow"
	googleauth "knowledge-backend/internal/auth"
	"knowledge-backend/internal/chat"
	"knowledge-backend/internal/documents"
	"knowledge-backend/internal/services/health"
	"knowledge-backend/internal/shared/config"
	"knowledge-backend/internal/shared/server"
	"knowledge-backend/internal/shared/storage/db"
	"knowledge-backend/internal/shared/storage/object"
	localstore "knowledge-backend/internal/shared/storage/object/local"
	s3store "knowledge-backend/internal/shared/storage/object/s3"
)

// App holds the wired application graph. Every service receives its store
// handles at construction; nothing reaches for process-global state.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store

	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	ChatService      *chat.Service
	Agent            agent.Client

	DocumentsHandler *documents.Handler
	ChatHandler      *chat.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Options overrides selected dependencies, mainly for tests.
type Options struct {
	Agent agent.Client
}

// Build wires the full application from configuration.
func Build(cfg config.Config) (*App, error) {
	return BuildWithOptions(cfg, Options{})
}

// BuildWithOptions wires the application, honoring overrides.
func BuildWithOptions(cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}

	if err := buildServices(ctx, app, opts); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		DocumentsHandler: app.DocumentsHandler,
		ChatHandler:      app.ChatHandler,
		GoogleAuth:       app.GoogleAuth,
		Health:           health.NewService(),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("%w: OBJECT_STORE=s3 requires S3_BUCKET", documents.ErrNotConfigured)
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(ctx context.Context, app *App, opts Options) error {
	var docRepo documents.Repo
	var sessionsRepo chat.SessionsRepo
	var messagesRepo chat.MessagesRepo

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		sessionsRepo = &chat.PGSessionsRepo{DB: app.DB}
		messagesRepo = &chat.PGMessagesRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		memMessages := chat.NewMemoryMessagesRepo()
		sessionsRepo = chat.NewMemorySessionsRepo(memMessages)
		messagesRepo = memMessages
	}

	docSvc := documents.NewService(docRepo, app.Store, documents.Limits{
		MaxUploadBytes:    app.Config.MaxUploadBytes(),
		AllowedExtensions: app.Config.AllowedExtensions,
		SignedURLTTL:      app.Config.SignedURLTTL,
		StoreTimeout:      app.Config.StoreTimeout,
	})

	agentClient := opts.Agent
	if agentClient == nil {
		if app.Config.AgentProject != "" && app.Config.AgentID != "" {
			client, err := dialogflow.NewClient(ctx,
				app.Config.AgentProject, app.Config.AgentLocation, app.Config.AgentID, app.Config.AgentEndpoint)
			if err != nil {
				return fmt.Errorf("build agent client: %w", err)
			}
			agentClient = client
		} else {
			log.Printf("bootstrap: agent not configured; chat replies will fail until AGENT_PROJECT and AGENT_ID are set")
			agentClient = unconfiguredAgent{}
		}
	}

	chatSvc := chat.NewService(sessionsRepo, messagesRepo, docSvc, agentClient)
	if app.Config.StoreTimeout > 0 {
		chatSvc.StoreTimeout = app.Config.StoreTimeout
	}

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		app.Config.AdminUsers,
	)

	app.DocumentsRepo = docRepo
	app.DocumentsService = docSvc
	app.ChatService = chatSvc
	app.Agent = agentClient
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ChatHandler = chat.NewHandler(chatSvc)
	app.GoogleAuth = googleAuthSvc
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// unconfiguredAgent fails every send. Chat routes stay mounted so the rest
// of the API keeps working when the agent dependency is absent.
type unconfiguredAgent struct{}

func (unconfiguredAgent) Send(ctx context.Context, externalID, text string, candidateDocumentIDs []string) (agent.Reply, error) {
	return agent.Reply{}, fmt.Errorf("%w: agent not configured", agent.ErrUnavailable)
}

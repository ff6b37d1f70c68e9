package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/apresai/shortsmith/internal/apikey"
	"github.com/apresai/shortsmith/internal/artifacts"
	"github.com/apresai/shortsmith/internal/genai"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Config holds server configuration.
type Config struct {
	Port         int
	TableName    string
	S3Bucket     string
	CDNBaseURL   string
	AWSRegion    string
	MaxTasks     int
	SecretPrefix string // e.g. "/shortsmith/mcp/"

	// RequireAPIKey guards /mcp with sk_ bearer keys stored in TableName.
	RequireAPIKey bool
	// RequestsPerMinute caps upstream generation calls across all jobs. Zero disables it.
	RequestsPerMinute int

	Backend genai.Backend
	Speech  genai.SpeechBackend
	Model   string
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	return Config{
		Port:              envInt("PORT", 8000),
		TableName:         envOr("DYNAMODB_TABLE", "shortsmith-jobs-prod"),
		S3Bucket:          envOr("S3_BUCKET", ""),
		CDNBaseURL:        envOr("CDN_BASE_URL", ""),
		AWSRegion:         envOr("AWS_REGION", "us-east-1"),
		MaxTasks:          envInt("MAX_TASKS", 5),
		SecretPrefix:      envOr("SECRET_PREFIX", "/shortsmith/mcp/"),
		RequireAPIKey:     envOr("REQUIRE_API_KEY", "") == "true",
		RequestsPerMinute: envInt("REQUESTS_PER_MINUTE", 0),
		Backend:           genai.Backend(envOr("SHORTSMITH_BACKEND", string(genai.BackendGemini))),
		Speech:            genai.SpeechBackend(envOr("SHORTSMITH_SPEECH", string(genai.SpeechGemini))),
		Model:             envOr("SHORTSMITH_MODEL", ""),
	}
}

// Server is the MCP server for video plan generation.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	handlers *Handlers
	tasks    *TaskManager
	keys     keyValidator
	http     *http.Server
	log      *slog.Logger
}

// New creates and configures the MCP server. baseCtx is cancelled on
// shutdown and bounds every background job.
func New(baseCtx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(baseCtx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	// DynamoDB, S3 and Secrets Manager calls join the request trace.
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	// Fetch secrets if running in AWS
	if cfg.SecretPrefix != "" {
		if err := loadSecrets(baseCtx, awsCfg, cfg.SecretPrefix, logger); err != nil {
			logger.Warn("Failed to load secrets from Secrets Manager, falling back to env vars",
				"error", err)
		}
	}

	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET environment variable is required")
	}

	ddbClient := dynamodb.NewFromConfig(awsCfg)
	s3Client := s3.NewFromConfig(awsCfg)

	store := NewStore(ddbClient, cfg.TableName)
	blobs := artifacts.New(s3Client, cfg.S3Bucket, cfg.CDNBaseURL)

	defaults := genai.Config{
		Backend:         cfg.Backend,
		Speech:          cfg.Speech,
		Model:           cfg.Model,
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
	}
	if cfg.RequestsPerMinute > 0 {
		defaults.Limiter = genai.NewLimiter(cfg.RequestsPerMinute)
	}
	engine := NewEngine(defaults, logger)

	tasks := NewTaskManager(baseCtx, store, blobs, engine, cfg.MaxTasks, logger)
	handlers := NewHandlers(tasks, store, blobs, engine, cache.New(10*time.Minute, 20*time.Minute), logger)

	s := &Server{
		cfg:      cfg,
		mcp:      newMCPServer(handlers),
		handlers: handlers,
		tasks:    tasks,
		log:      logger,
	}
	if cfg.RequireAPIKey {
		s.keys = apikey.NewValidator(ddbClient, cfg.TableName)
	}
	return s, nil
}

func newMCPServer(h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"shortsmith",
		Version,
		server.WithToolCapabilities(true),
	)

	handlers := map[string]server.ToolHandlerFunc{
		"generate_video_plan":      h.HandleGenerateVideoPlan,
		"get_job":                  h.HandleGetJob,
		"list_jobs":                h.HandleListJobs,
		"generate_hook_image":      h.HandleGenerateHookImage,
		"edit_hook_image":          h.HandleEditHookImage,
		"generate_voiceover_audio": h.HandleGenerateVoiceoverAudio,
		"list_platforms":           h.HandleListPlatforms,
	}
	for _, tool := range ToolDefs() {
		s.AddTool(tool, handlers[tool.Name])
	}
	return s
}

// Handler returns the HTTP routes: the stateless MCP endpoint and a health check.
func (s *Server) Handler() http.Handler {
	var mcpHandler http.Handler = server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true), // AgentCore manages session IDs
	)
	if s.keys != nil {
		mcpHandler = requireAPIKey(mcpHandler, s.keys, s.log)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	return mux
}

// Start runs the HTTP MCP server until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr, "auth", s.keys != nil, "backend", s.cfg.Backend)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running jobs to record
// their final state, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("Jobs still running at shutdown deadline", "running", s.tasks.Running())
	}
	return err
}

// loadSecrets fetches API keys from Secrets Manager and sets them as env vars.
func loadSecrets(ctx context.Context, cfg aws.Config, prefix string, logger *slog.Logger) error {
	client := secretsmanager.NewFromConfig(cfg)

	for _, envVar := range []string{"GEMINI_API_KEY", "ANTHROPIC_API_KEY"} {
		// Skip if already set in environment
		if os.Getenv(envVar) != "" {
			continue
		}

		secretID := prefix + envVar
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: &secretID,
		})
		if err != nil {
			logger.Info("Secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			os.Setenv(envVar, *result.SecretString)
			logger.Info("Loaded secret", "secret_id", secretID)
		}
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

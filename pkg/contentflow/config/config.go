package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caldant/contentflow/pkg/contentflow"
	"github.com/caldant/contentflow/pkg/contentflow/repo/memory"
	repopg "github.com/caldant/contentflow/pkg/contentflow/repo/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		DatabaseType:       "memory",
		DBSchema:           "contentflow",
		LogLevel:           "info",
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the contentflow service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`
	DatabaseType string `env:"-"` // "memory", "postgres"; derived from DATABASE_URL
	DBSchema     string `env:"DB_SCHEMA" env-default:"contentflow"`

	// JWTSecret signs and verifies the bearer tokens carrying the acting
	// user.
	JWTSecret string `env:"JWT_SECRET" env-default:""`

	// Server options
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	EnableEventLogging bool   `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}

	return nil
}

// Logger builds the process logger at the configured level.
func (c *ServerConfig) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// Stack bundles the service with the stores behind it. The interface fields
// are what handlers consume; Memory is non-nil only for the in-memory
// database and allows seeding at startup.
type Stack struct {
	Service     contentflow.Service
	Nodes       contentflow.ContentRepository
	Languages   contentflow.LanguageCatalog
	Types       contentflow.TypeCatalog
	Permissions contentflow.PermissionRepository
	Memory      *MemoryStores
	Pool        *pgxpool.Pool
}

// MemoryStores exposes the concrete in-memory stores for seeding.
type MemoryStores struct {
	Languages   *memory.LanguageCatalog
	Types       *memory.TypeCatalog
	Permissions *memory.PermissionStore
}

// Close releases the stack's database resources.
func (s *Stack) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// BuildStack creates a Service and its stores from the server configuration.
func (c *ServerConfig) BuildStack(hooks *contentflow.Hooks) (*Stack, error) {
	log := c.Logger()
	stack := &Stack{}

	switch c.DatabaseType {
	case "memory":
		mem := &MemoryStores{
			Languages:   memory.NewLanguageCatalog(),
			Types:       memory.NewTypeCatalog(),
			Permissions: memory.NewPermissionStore(),
		}
		stack.Memory = mem
		stack.Nodes = memory.New()
		stack.Languages = mem.Languages
		stack.Types = mem.Types
		stack.Permissions = mem.Permissions

	case "postgres":
		pool, err := c.newPool()
		if err != nil {
			return nil, err
		}
		stack.Pool = pool
		stack.Nodes = repopg.NewWithPool(pool)
		stack.Languages = repopg.NewLanguageCatalog(pool)
		stack.Types = repopg.NewTypeCatalog(pool)
		stack.Permissions = repopg.NewPermissionStore(pool)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	options := []contentflow.Option{
		contentflow.WithRepository(stack.Nodes),
		contentflow.WithLanguageCatalog(stack.Languages),
		contentflow.WithTypeCatalog(stack.Types),
		contentflow.WithPermissionRepository(stack.Permissions),
		contentflow.WithLogger(log),
	}
	if hooks != nil {
		options = append(options, contentflow.WithHooks(hooks))
	}
	if c.EnableEventLogging {
		options = append(options, contentflow.WithEventSink(contentflow.NewLoggingEventSink(log)))
	}

	svc, err := contentflow.New(options...)
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("failed to build service: %w", err)
	}
	stack.Service = svc
	return stack, nil
}

func (c *ServerConfig) newPool() (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session. It fails if the schema (when provided) does
// not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

package db

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/types"
	"github.com/slotter-org/cs-ai-agent/internal/utils"
)

// PostgresService owns the process-wide connection pool. The pool is opened
// on first use and shared by every repository for the life of the process.
type PostgresService struct {
	log          *logger.Logger
	dsn          string
	maxOpenConns int
	maxIdleConns int
	connLifetime time.Duration

	once sync.Once
	db   *gorm.DB
	err  error
}

func NewPostgresService(log *logger.Logger) *PostgresService {
	serviceLog := log.With("service", "PostgresService")

	//1) Get and Set Environment Variables
	log.Info("Attempting to load environment variables for Postgres now...")
	databaseURL := utils.GetEnv("DATABASE_URL", "", log)
	databaseName := utils.GetEnv("DATABASE_NAME", "cs-ai-agent", log)
	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	maxOpen := utils.GetEnvAsInt("DB_MAX_OPEN_CONNS", 75, log)
	maxIdle := utils.GetEnvAsInt("DB_MAX_IDLE_CONNS", 10, log)
	lifetime := utils.GetEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute, log)
	log.Info("Environment variables loaded for Postgres :)")

	//2) Construct DSN From Environment Variables
	dsn := databaseURL
	if dsn == "" {
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			url.QueryEscape(postgresUser), url.QueryEscape(postgresPassword), postgresHost, postgresPort, databaseName)
	} else {
		dsn = withDatabaseName(dsn, databaseName)
	}

	return &PostgresService{
		log:          serviceLog,
		dsn:          dsn,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		connLifetime: lifetime,
	}
}

// NewWithDB wraps an already opened connection, e.g. an in-memory sqlite
// database in tests.
func NewWithDB(gdb *gorm.DB, log *logger.Logger) *PostgresService {
	s := &PostgresService{log: log.With("service", "PostgresService"), db: gdb}
	s.once.Do(func() {})
	return s
}

// DB returns the shared pool, connecting on the first call.
func (s *PostgresService) DB(ctx context.Context) (*gorm.DB, error) {
	s.once.Do(func() {
		s.db, s.err = s.connect(ctx)
	})
	return s.db, s.err
}

func (s *PostgresService) connect(ctx context.Context) (*gorm.DB, error) {
	s.log.Info("Attempting to connect to Postgres DB now...")
	gdb, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		s.log.Error("Failed to connect to Postgres DB", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres DB: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)
	sqlDB.SetMaxIdleConns(s.maxIdleConns)
	sqlDB.SetConnMaxLifetime(s.connLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping Postgres DB: %w", err)
	}
	s.log.Info("Successfully Connected to Postgres DB :)")
	return gdb, nil
}

// Models lists every table owned by the service.
func Models() []interface{} {
	return []interface{}{
		&types.Conversation{},
		&types.Transcript{},
		&types.Task{},
	}
}

func (s *PostgresService) AutoMigrateAll(ctx context.Context) error {
	gdb, err := s.DB(ctx)
	if err != nil {
		return err
	}
	s.log.Info("Starting AutoMigrateAll for all GORM models now...")
	if err := gdb.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		s.log.Error("AutoMigrateAll failed :(", "error", err)
		return err
	}
	s.log.Info("AutoMigrateAll completed successfully :)")
	return nil
}

func (s *PostgresService) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// withDatabaseName swaps the path of a postgres URL for the configured
// database name; keyword/value DSNs are returned unchanged.
func withDatabaseName(dsn, name string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || name == "" {
		return dsn
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/" + name
	}
	return u.String()
}

package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"attendtrack/internal/adapters/persistence/memory"
	"attendtrack/internal/adapters/persistence/models"
	"attendtrack/internal/adapters/persistence/mongostore"
	"attendtrack/internal/adapters/persistence/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the storage connection for the lifetime of the process.
// Handlers ask it for readiness instead of reading a shared flag.
type Database struct {
	driver string
	sql    *gorm.DB
	client *mongo.Client
	mongo  *mongo.Database
	repos  *repositories.Repositories
}

// ConnectDatabase establishes the connection selected by DB_DRIVER
func ConnectDatabase(ctx context.Context, cfg *Config) (*Database, error) {
	d := &Database{driver: cfg.Database.Driver}

	switch cfg.Database.Driver {
	case "mysql", "postgres":
		db, err := openSQL(cfg)
		if err != nil {
			return nil, err
		}
		d.sql = db
		d.repos = repositories.NewGormRepositories(db)

	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().
			ApplyURI(cfg.Database.MongoURI).
			SetServerSelectionTimeout(cfg.StoreTimeout))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}
		d.client = client
		d.mongo = client.Database(cfg.Database.DBName)
		d.repos = mongostore.New(d.mongo)

	case "memory":
		log.Println("⚠️ Using in-memory store, data is lost on restart")
		d.repos = memory.NewStore().Repositories()

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	log.Printf("✅ Database connected successfully [%s %s:%s/%s]",
		cfg.Database.Driver,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
	)

	return d, nil
}

// NewDatabase wraps already-built repositories (used with the in-memory store)
func NewDatabase(driver string, repos *repositories.Repositories) *Database {
	return &Database{driver: driver, repos: repos}
}

// openSQL opens MySQL or PostgreSQL through GORM
func openSQL(cfg *Config) (*gorm.DB, error) {
	// Configure GORM logger based on mode
	var gormLogger logger.Interface
	if cfg.IsDev() {
		gormLogger = logger.Default.LogMode(logger.Info)
	} else {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	var dialector gorm.Dialector
	if cfg.Database.Driver == "postgres" {
		dialector = postgres.Open(buildPostgresDSN(cfg.Database))
	} else {
		dialector = mysql.Open(buildMySQLDSN(cfg.Database))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// buildMySQLDSN returns the MySQL connection string
func buildMySQLDSN(d DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
	)
}

// buildPostgresDSN returns the PostgreSQL connection string
func buildPostgresDSN(d DatabaseConfig) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host,
		d.User,
		d.Password,
		d.DBName,
		d.Port,
	)
}

// Driver returns the configured driver name
func (d *Database) Driver() string {
	return d.driver
}

// Repositories returns the repositories bound to this connection
func (d *Database) Repositories() *repositories.Repositories {
	return d.repos
}

// Migrate creates tables (SQL) or indexes (MongoDB)
func (d *Database) Migrate(ctx context.Context) error {
	switch {
	case d.sql != nil:
		return models.AutoMigrate(d.sql.WithContext(ctx))
	case d.mongo != nil:
		return mongostore.EnsureIndexes(ctx, d.mongo)
	}
	return nil
}

// Ping checks if the database is reachable
func (d *Database) Ping(ctx context.Context) error {
	switch {
	case d.sql != nil:
		sqlDB, err := d.sql.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	case d.client != nil:
		return d.client.Ping(ctx, readpref.Primary())
	case d.repos != nil:
		return nil
	}
	return fmt.Errorf("database not initialized")
}

// Ready reports whether the database answers a ping within timeout
func (d *Database) Ready(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Ping(ctx) == nil
}

// Close closes the database connection
func (d *Database) Close(ctx context.Context) error {
	switch {
	case d.sql != nil:
		sqlDB, err := d.sql.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	case d.client != nil:
		return d.client.Disconnect(ctx)
	}
	return nil
}

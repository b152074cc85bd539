package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// DB holds the database connections
type DB struct {
	SQL   *gorm.DB
	Mongo *mongo.Client
	Docs  *mongo.Database
}

// InitDB opens the relational store and MongoDB named by cfg.
func InitDB(ctx context.Context, cfg Config) (*DB, error) {
	sqlDB, err := OpenSQL(cfg.DatabaseURL, cfg.OTEL.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQL store: %w", err)
	}

	mongoClient, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		closeSQL(sqlDB)
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &DB{
		SQL:   sqlDB,
		Mongo: mongoClient,
		Docs:  mongoClient.Database(cfg.MongoDatabase),
	}, nil
}

// OpenSQL picks the gorm dialector from the URL: postgres:// or postgresql://
// go to postgres, sqlite: and file: to the pure-Go sqlite driver.
func OpenSQL(url string, traced bool) (*gorm.DB, error) {
	dialector, isSQLite, err := dialectorFor(url)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if traced {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		db.Exec("PRAGMA journal_mode=WAL;")
		db.Exec("PRAGMA foreign_keys=ON;")
		db.Exec("PRAGMA busy_timeout=5000;")
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	log.Info().Bool("sqlite", isSQLite).Msg("connected to SQL store")
	return db, nil
}

func dialectorFor(url string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), false, nil
	case strings.HasPrefix(url, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(url, "sqlite:")), true, nil
	case strings.HasPrefix(url, "file:"):
		return sqlite.Open(url), true, nil
	case strings.Contains(url, "host="):
		// key=value DSN
		return postgres.Open(url), false, nil
	}
	return nil, false, fmt.Errorf("unsupported database url %q", url)
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info().Msg("connected to MongoDB")
	return client, nil
}

// Close closes both connections.
func (db *DB) Close() {
	closeSQL(db.SQL)
	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("error closing MongoDB connection")
		}
	}
}

func closeSQL(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Error().Err(err).Msg("error getting SQL DB from gorm")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("error closing SQL connection")
	}
}

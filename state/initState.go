package state

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/iamKIVOUS/CampusConnect/config"
)

// AppState holds every process-wide handle (DB, Redis, instance identity).
// It is constructed once at startup and passed into every component instead
// of living as ambient global state.
type AppState struct {
	Ctx        context.Context
	Cancel     context.CancelFunc
	DB         *gorm.DB
	Redis      *redis.Client
	InstanceID string
}

func InitAppState(ctx context.Context, cancel context.CancelFunc) (*AppState, error) {
	dbUrl := config.Conf.DATABASE.Postgres.DSN
	rAddr := config.Conf.DATABASE.Redis.Addr
	rPass := config.Conf.DATABASE.Redis.Password

	db, _, err := InitPostgres(dbUrl)
	if err != nil {
		return nil, err
	}

	rdb, err := InitRedis(rAddr, rPass, 0)
	if err != nil {
		return nil, err
	}

	instanceID := config.Conf.App.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	return &AppState{
		Ctx:        ctx,
		Cancel:     cancel,
		DB:         db,
		Redis:      rdb,
		InstanceID: instanceID,
	}, nil
}

func (a *AppState) Close() {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			log.Info().Msg("Closing PostgreSQL database connection...")
			sqlDB.Close()
		}
	}

	if a.Redis != nil {
		log.Info().Msg("Closing Redis client...")
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
	}
}

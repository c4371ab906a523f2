package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/open-crosspost/scheduler-service/internal/config"
	"github.com/open-crosspost/scheduler-service/internal/engine"
	"github.com/open-crosspost/scheduler-service/internal/queue/redisqueue"
	"github.com/open-crosspost/scheduler-service/internal/store/pg"
)

// dialCoordinator builds an engine.Coordinator talking directly to the same
// Postgres and Redis the server uses, for operator commands (jobs/dlq) that
// don't need the HTTP surface. The caller must invoke the returned close
// func when done.
func dialCoordinator(ctx context.Context) (*engine.Coordinator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequirePostgresURL(); err != nil {
		return nil, nil, err
	}

	db, err := pg.OpenDB(cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
	})

	jobStore := pg.NewJobStore(db)
	dispatchQueue := redisqueue.New(redisClient)
	coordinator := engine.New(jobStore, dispatchQueue)

	closeFn := func() {
		db.Close()
		redisClient.Close()
	}
	return coordinator, closeFn, nil
}

package jobs

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/watchtower-soc/watchtower/internal/configs"
	"github.com/watchtower-soc/watchtower/internal/repositories/sql/token"
	responseHandler "github.com/watchtower-soc/watchtower/internal/response/handler"
	"github.com/watchtower-soc/watchtower/pkg/infra"
)

type Task interface {
	ScheduledTask()
}

var (
	scheduledOnce sync.Once
	task          Task
)

type TaskImpl struct {
	tokenRepo token.Repository
	monitors  responseHandler.Handler
}

func InitScheduledTask(config configs.Configs) Task {
	scheduledOnce.Do(func() {
		connection, err := infra.SQL.GetConnection()
		if err != nil {
			log.Panic().Err(err).Msg("Failed to get SQL connection")
		}
		sqlConn, ok := connection.(*infra.SQLConnection)
		if !ok {
			log.Panic().Msg("Failed to cast connection to SQLConnection")
		}
		tokenRepo, err := token.NewRepository(sqlConn)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create token repository")
			return
		}
		task = &TaskImpl{
			tokenRepo: tokenRepo,
			monitors:  responseHandler.GetMonitorHandler(),
		}
	})

	return task
}

// ScheduledTask runs the periodic maintenance sweep: expired login tokens are
// purged and monitor sessions whose runs have reached a terminal state are
// closed.
func (t *TaskImpl) ScheduledTask() {
	if err := t.tokenRepo.CleanupExpiredTokens(); err != nil {
		log.Error().Err(err).Msg("Expired token cleanup failed")
	}
	closed := t.monitors.ReapIdle()
	if closed > 0 {
		log.Info().Int("closed", closed).Msg("Reaped terminal monitor sessions")
	}
}

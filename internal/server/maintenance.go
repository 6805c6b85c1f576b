package server

import (
	"context"
	"fmt"
	"time"

	"fireplay/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	tokenPurgeSchedule = "@hourly"
	tokenPurgeTimeout  = time.Minute
)

// tokenPurger is the slice of the user service the cleanup job needs
type tokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

var _ tokenPurger = service.UserService(nil)

// newMaintenance schedules background housekeeping. The returned scheduler is
// not started.
func newMaintenance(users tokenPurger, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := c.AddFunc(tokenPurgeSchedule, purgeTokensJob(users, logger)); err != nil {
		return nil, fmt.Errorf("failed to schedule token purge: %w", err)
	}
	return c, nil
}

func purgeTokensJob(users tokenPurger, logger *zap.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), tokenPurgeTimeout)
		defer cancel()

		n, err := users.PurgeExpiredTokens(ctx)
		if err != nil {
			logger.Error("Refresh token purge failed", zap.Error(err))
			return
		}
		logger.Info("Purged refresh tokens", zap.Int64("deleted", n))
	}
}

package jobs

import (
	"context"
	"time"

	"github.com/Kyz7/juna/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TokenCleanupSchedule runs the refresh-token purge at the top of every hour.
const TokenCleanupSchedule = "@hourly"

// PurgeRefreshTokens deletes refresh tokens that expired or were revoked
// before now.
func PurgeRefreshTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("expires_at < ? OR revoked = ?", now, true).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

func NewScheduler(db *gorm.DB, timeout time.Duration, log logrus.FieldLogger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log})))

	_, err := c.AddFunc(TokenCleanupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := PurgeRefreshTokens(ctx, db, time.Now())
		if err != nil {
			log.WithError(err).Error("refresh token cleanup failed")
			return
		}
		if n > 0 {
			log.WithField("deleted", n).Info("refresh tokens cleaned up")
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("job scheduler started")
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("job scheduler stop timed out")
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			f[k] = kv[i+1]
		}
	}
	return f
}

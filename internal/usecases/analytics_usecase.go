package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const (
	defaultAnalyticsDays = 7
	maxAnalyticsDays     = 365
	auditListLimit       = 100
)

// RequestMeta identifies who triggered an audited change.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type AnalyticsUsecase struct {
	store *interfaces.Store
	log   *zap.Logger
}

func NewAnalyticsUsecase(store *interfaces.Store, log *zap.Logger) *AnalyticsUsecase {
	return &AnalyticsUsecase{store: store, log: log.Named("analytics")}
}

// Daily returns the client's counters for the last days days, newest first.
func (u *AnalyticsUsecase) Daily(ctx context.Context, clientID string, days int) ([]entities.Analytics, error) {
	if days <= 0 {
		days = defaultAnalyticsDays
	}
	days = min(days, maxAnalyticsDays)
	since := entities.DayStart(time.Now()).AddDate(0, 0, -(days - 1))
	return u.store.Analytics.List(ctx, orDefaultClient(clientID), since)
}

func (u *AnalyticsUsecase) Audit(ctx context.Context, clientID string) ([]entities.AuditLog, error) {
	return u.store.Audit.List(ctx, orDefaultClient(clientID), auditListLimit)
}

// bump increments today's counter. Failures are logged; counters never fail
// the operation that produced them.
func bump(ctx context.Context, store *interfaces.Store, log *zap.Logger, clientID string, counter entities.Counter, by int) {
	if by == 0 {
		return
	}
	if err := store.Analytics.Increment(ctx, clientID, time.Now(), counter, by); err != nil {
		log.Warn("increment analytics",
			zap.String("client_id", clientID),
			zap.String("counter", string(counter)),
			zap.Error(err))
	}
}

func audit(ctx context.Context, store *interfaces.Store, log *zap.Logger, entry *entities.AuditLog, meta RequestMeta) {
	entry.IP = meta.IP
	entry.UserAgent = meta.UserAgent
	if err := store.Audit.Create(ctx, entry); err != nil {
		log.Warn("write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func orDefaultClient(id string) string {
	if id == "" {
		return entities.DefaultClientID
	}
	return id
}

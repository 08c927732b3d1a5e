package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MetricsRepository reads the read-only aggregate views
type MetricsRepository interface {
	CompletedToday(ctx context.Context, clinicID uuid.UUID) (int64, error)
	AvgWaitMinutesToday(ctx context.Context, clinicID uuid.UUID) (decimal.NullDecimal, error)
}

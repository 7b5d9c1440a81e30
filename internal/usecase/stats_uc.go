package usecase

import (
	"context"
	"time"

	"sproutcv/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Stats is the admin dashboard snapshot.
type Stats struct {
	TotalProfiles  int
	RevenueWeek    int64
	RevenueMonth   int64
	RevenueYear    int64
	SecurityByType map[string]int
}

type StatsUseCase interface {
	Snapshot(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	profiles repository.ProfileRepository
	payments repository.PaymentRepository
	events   repository.SecurityEventRepository
}

func NewStatsUseCase(
	profiles repository.ProfileRepository,
	payments repository.PaymentRepository,
	events repository.SecurityEventRepository,
) *statsUC {
	return &statsUC{profiles: profiles, payments: payments, events: events}
}

func (u *statsUC) Snapshot(ctx context.Context) (*Stats, error) {
	total, err := u.profiles.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	week, err := u.payments.SumCompletedByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return nil, err
	}
	month, err := u.payments.SumCompletedByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return nil, err
	}
	year, err := u.payments.SumCompletedByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return nil, err
	}
	byType, err := u.events.CountByType(ctx, repository.NoTX, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalProfiles:  total,
		RevenueWeek:    week,
		RevenueMonth:   month,
		RevenueYear:    year,
		SecurityByType: byType,
	}, nil
}

package report

import (
	"context"
	"refgate/entity"
)

type Database interface {
	CountAdmitted(ctx context.Context) (int64, error)
	TopReferrers(ctx context.Context, limit int) ([]entity.Referrer, error)
}

// Reporter builds the read-only administrative view. Who may see it is decided by the caller.
type Reporter struct {
	db       Database
	capacity int
	size     int
}

func New(db Database, capacity, leaderboardSize int) *Reporter {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &Reporter{
		db:       db,
		capacity: capacity,
		size:     leaderboardSize,
	}
}

func (r *Reporter) AdminReport(ctx context.Context) (*entity.Report, error) {
	admitted, err := r.db.CountAdmitted(ctx)
	if err != nil {
		return nil, err
	}
	leaders, err := r.db.TopReferrers(ctx, r.size)
	if err != nil {
		return nil, err
	}
	return &entity.Report{
		Admitted:    admitted,
		Capacity:    r.capacity,
		Leaderboard: leaders,
	}, nil
}

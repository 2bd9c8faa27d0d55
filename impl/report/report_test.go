package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"refgate/entity"
	"refgate/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminReport(t *testing.T) {
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	// 15 users, user i has i referral credits; users 1..3 admitted
	for id := int64(1); id <= 15; id++ {
		_, err = store.RegisterUser(ctx, id, 0)
		require.NoError(t, err)
		for i := int64(0); i < id; i++ {
			require.NoError(t, store.AddReferral(ctx, id))
		}
	}
	for id := int64(1); id <= 3; id++ {
		require.NoError(t, store.Admit(ctx, id, 2000))
	}

	rep, err := New(store, 2000, 10).AdminReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), rep.Admitted)
	assert.Equal(t, 2000, rep.Capacity)
	require.Len(t, rep.Leaderboard, 10)
	assert.Equal(t, entity.Referrer{UserId: 15, ReferralCount: 15}, rep.Leaderboard[0])
	for i := 1; i < len(rep.Leaderboard); i++ {
		assert.GreaterOrEqual(t, rep.Leaderboard[i-1].ReferralCount, rep.Leaderboard[i].ReferralCount)
	}
}

func TestAdminReport_Empty(t *testing.T) {
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	rep, err := New(store, 5, 0).AdminReport(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Admitted)
	assert.Empty(t, rep.Leaderboard)
}

type brokenDB struct{}

func (brokenDB) CountAdmitted(context.Context) (int64, error) { return 0, errors.New("offline") }
func (brokenDB) TopReferrers(context.Context, int) ([]entity.Referrer, error) {
	return nil, nil
}

func TestAdminReport_StorageFailure(t *testing.T) {
	_, err := New(brokenDB{}, 5, 10).AdminReport(context.Background())
	assert.EqualError(t, err, "offline")
}

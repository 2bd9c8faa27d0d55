package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"refgate/entity"
	"refgate/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *database.SQLStore) {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func referralCount(t *testing.T, store *database.SQLStore, userId int64) int {
	t.Helper()
	user, err := store.GetUser(context.Background(), userId)
	require.NoError(t, err)
	return user.ReferralCount
}

func TestParseReferrerToken(t *testing.T) {
	tests := []struct {
		token string
		id    int64
		ok    bool
	}{
		{"5113023867", 5113023867, true},
		{" 42 ", 42, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"0", 0, false},
		{"-7", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			id, ok := ParseReferrerToken(tt.token)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestReferralLink(t *testing.T) {
	assert.Equal(t, "https://t.me/gate_bot?start=123", ReferralLink("gate_bot", 123))
}

func TestRecordRegistration_NoReferrer(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	created, err := l.RecordRegistration(ctx, 1, "")
	require.NoError(t, err)
	assert.True(t, created)

	user, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, user.ReferralCount)
	assert.False(t, user.HasReferrer())
}

func TestRecordRegistration_CreditsReferrerOnce(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordRegistration(ctx, 100, "")
	require.NoError(t, err)

	created, err := l.RecordRegistration(ctx, 200, "100")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, referralCount(t, store, 100))

	created, err = l.RecordRegistration(ctx, 200, "100")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, referralCount(t, store, 100), "duplicate registration must not credit again")

	user, err := store.GetUser(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.ReferrerId)
}

func TestRecordRegistration_ExistingUserWithNewReferrer(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, err := l.RecordRegistration(ctx, id, "")
		require.NoError(t, err)
	}

	created, err := l.RecordRegistration(ctx, 2, "1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, referralCount(t, store, 1), "attribution happens only at first registration")
}

func TestRecordRegistration_InvalidTokensAreDropped(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"self referral", "7"},
		{"malformed", "hello"},
		{"unknown referrer", "555"},
		{"negative", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := newTestLedger(t)
			ctx := context.Background()

			created, err := l.RecordRegistration(ctx, 7, tt.token)
			require.NoError(t, err)
			assert.True(t, created)

			user, err := store.GetUser(ctx, 7)
			require.NoError(t, err)
			assert.False(t, user.HasReferrer())
			assert.Equal(t, 0, user.ReferralCount)

			_, err = store.GetUser(ctx, 555)
			assert.ErrorIs(t, err, entity.ErrNotFound)
		})
	}
}

func TestRecordRegistration_CountMatchesDistinctReferredUsers(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordRegistration(ctx, 1, "")
	require.NoError(t, err)

	// 10 distinct users, each retrying their /start concurrently
	var wg sync.WaitGroup
	for id := int64(10); id < 20; id++ {
		for attempt := 0; attempt < 5; attempt++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, err := l.RecordRegistration(ctx, id, strconv.FormatInt(1, 10))
				assert.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	assert.Equal(t, 10, referralCount(t, store, 1))
}

type failingDB struct {
	Database
	err error
}

func (f failingDB) GetUser(context.Context, int64) (*entity.User, error) {
	return nil, f.err
}

func TestRecordRegistration_StorageFailure(t *testing.T) {
	storageErr := errors.New("disk full")
	l := New(failingDB{err: storageErr}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	created, err := l.RecordRegistration(context.Background(), 1, "")
	assert.False(t, created)
	assert.ErrorIs(t, err, storageErr)
}

// memStore keeps a registration whose credit failed as pending, the way a
// store without multi-document transactions does.
type memStore struct {
	mu          sync.Mutex
	users       map[int64]*entity.User
	creditFails int
}

func newMemStore(ids ...int64) *memStore {
	s := &memStore{users: make(map[int64]*entity.User)}
	for _, id := range ids {
		s.users[id] = &entity.User{UserId: id}
	}
	return s
}

func (s *memStore) GetUser(_ context.Context, userId int64) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memStore) RegisterUser(ctx context.Context, userId, referrerId int64) (bool, error) {
	s.mu.Lock()
	if _, ok := s.users[userId]; ok {
		s.mu.Unlock()
		return false, nil
	}
	s.users[userId] = &entity.User{UserId: userId, ReferrerId: referrerId, ReferralPending: referrerId != 0}
	s.mu.Unlock()
	if referrerId == 0 {
		return true, nil
	}
	return true, s.CompleteReferral(ctx, userId)
}

func (s *memStore) CompleteReferral(_ context.Context, userId int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[userId]
	if user == nil || !user.ReferralPending {
		return nil
	}
	if s.creditFails > 0 {
		s.creditFails--
		return errors.New("connection reset")
	}
	user.ReferralPending = false
	s.users[user.ReferrerId].ReferralCount++
	return nil
}

func TestRecordRegistration_RetryFinishesFailedCredit(t *testing.T) {
	store := newMemStore(1)
	store.creditFails = 1
	l := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	_, err := l.RecordRegistration(ctx, 2, "1")
	require.Error(t, err)

	referrer, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, referrer.ReferralCount)

	created, err := l.RecordRegistration(ctx, 2, "1")
	require.NoError(t, err)
	assert.False(t, created)

	referrer, err = store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, referrer.ReferralCount)

	// nothing left to finish: further retries credit nothing
	_, err = l.RecordRegistration(ctx, 2, "")
	require.NoError(t, err)
	referrer, err = store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, referrer.ReferralCount)

	user, err := store.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ReferrerId)
	assert.False(t, user.ReferralPending)
}

// Package ledger attributes new registrations to their referrers.
// A referrer is credited once per referred user, and only by the registration
// that actually created the referred user's record.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"refgate/entity"
	"refgate/lib/sl"
	"strconv"
	"strings"
)

type Database interface {
	GetUser(ctx context.Context, userId int64) (*entity.User, error)
	// RegisterUser creates the user and credits referrerId (when non-zero)
	// as one operation; created is false when the user already existed.
	RegisterUser(ctx context.Context, userId, referrerId int64) (bool, error)
	// CompleteReferral finishes the credit of a registration left with
	// ReferralPending set.
	CompleteReferral(ctx context.Context, userId int64) error
}

type Ledger struct {
	db  Database
	log *slog.Logger
}

func New(db Database, log *slog.Logger) *Ledger {
	return &Ledger{
		db:  db,
		log: log.With(sl.Module("ledger")),
	}
}

// ParseReferrerToken reads the deep-link payload as a user identifier.
// Anything that is not a positive integer yields ok=false.
func ParseReferrerToken(text string) (referrerId int64, ok bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ReferralLink is the personal deep link a user shares; the payload is their id.
func ReferralLink(botUsername string, userId int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, userId)
}

// RecordRegistration registers userId, citing the referrer named by token when
// it is valid: well formed, not the user themselves and already registered.
// Invalid tokens are dropped silently. Returns whether the user was created.
// A repeated call for a user whose earlier credit failed finishes that credit.
func (l *Ledger) RecordRegistration(ctx context.Context, userId int64, token string) (bool, error) {
	user, err := l.db.GetUser(ctx, userId)
	if err == nil {
		if !user.ReferralPending {
			return false, nil
		}
		if err = l.db.CompleteReferral(ctx, userId); err != nil {
			return false, fmt.Errorf("complete referral: %w", err)
		}
		l.log.With(sl.User(userId), slog.Int64("referrer_id", user.ReferrerId)).Info("pending referral credited")
		return false, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return false, err
	}

	referrerId, err := l.resolveReferrer(ctx, userId, token)
	if err != nil {
		return false, err
	}

	created, err := l.db.RegisterUser(ctx, userId, referrerId)
	if err != nil {
		return created, fmt.Errorf("register user: %w", err)
	}
	if !created {
		return false, nil
	}

	log := l.log.With(sl.User(userId))
	if referrerId == 0 {
		log.Debug("user registered")
		return true, nil
	}
	log.With(slog.Int64("referrer_id", referrerId)).Info("user registered by referral")
	return true, nil
}

func (l *Ledger) resolveReferrer(ctx context.Context, userId int64, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	referrerId, ok := ParseReferrerToken(token)
	if !ok || referrerId == userId {
		l.log.With(sl.User(userId), slog.String("token", token)).Debug("referrer token ignored")
		return 0, nil
	}
	_, err := l.db.GetUser(ctx, referrerId)
	if errors.Is(err, entity.ErrNotFound) {
		l.log.With(sl.User(userId), slog.Int64("referrer_id", referrerId)).Debug("unknown referrer ignored")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return referrerId, nil
}

// Package gate decides whether a user gets the single-use invite.
//
// Per user the states only move forward:
//
//	unregistered -> registered (not eligible) -> registered (eligible) -> admitted
//
// The capacity check and the admitted flag are one atomic Database.Admit call,
// so concurrent requests from different users cannot push the admitted total
// past capacity, and repeated requests from one user never issue a second invite.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"refgate/entity"
	"refgate/lib/sl"

	"github.com/google/uuid"
)

type Database interface {
	GetUser(ctx context.Context, userId int64) (*entity.User, error)
	Admit(ctx context.Context, userId int64, capacity int) error
	RevokeAdmission(ctx context.Context, userId int64) error
	SetInviteLink(ctx context.Context, userId int64, link string) error
}

// Inviter creates a single-use invitation into the restricted group.
// name labels the link in the group's invite list.
type Inviter interface {
	CreateInvite(ctx context.Context, userId int64, name string) (string, error)
}

// Listener is told about every admission after the invite was issued.
type Listener interface {
	UserAdmitted(userId int64, inviteLink string)
}

type Config struct {
	RequiredReferrals int
	MaxUsers          int
}

type Gate struct {
	db       Database
	inviter  Inviter
	listener Listener
	conf     Config
	log      *slog.Logger
}

func New(db Database, conf Config, log *slog.Logger) *Gate {
	return &Gate{
		db:   db,
		conf: conf,
		log:  log.With(sl.Module("gate")),
	}
}

// SetInviter and SetListener must be called before the gate serves requests.
func (g *Gate) SetInviter(inviter Inviter) {
	g.inviter = inviter
}

func (g *Gate) SetListener(listener Listener) {
	g.listener = listener
}

// RequestAccess issues the invite to an eligible, not yet admitted user.
func (g *Gate) RequestAccess(ctx context.Context, userId int64) (*entity.AccessResult, error) {
	return g.access(ctx, userId, true)
}

// ForceAccess is RequestAccess without the referral requirement.
func (g *Gate) ForceAccess(ctx context.Context, userId int64) (*entity.AccessResult, error) {
	return g.access(ctx, userId, false)
}

func (g *Gate) access(ctx context.Context, userId int64, checkReferrals bool) (*entity.AccessResult, error) {
	user, err := g.db.GetUser(ctx, userId)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.MustRegisterFirst(), nil
	}
	if err != nil {
		return nil, err
	}
	if user.Admitted {
		return entity.AlreadyAdmitted(), nil
	}
	if checkReferrals && !user.IsEligible(g.conf.RequiredReferrals) {
		return entity.InsufficientReferrals(user.Missing(g.conf.RequiredReferrals)), nil
	}
	return g.issue(ctx, userId)
}

func (g *Gate) issue(ctx context.Context, userId int64) (*entity.AccessResult, error) {
	if g.inviter == nil {
		return nil, fmt.Errorf("inviter not connected")
	}
	log := g.log.With(sl.User(userId))

	err := g.db.Admit(ctx, userId, g.conf.MaxUsers)
	switch {
	case errors.Is(err, entity.ErrCapacityExceeded):
		log.Info("capacity exceeded", slog.Int("max_users", g.conf.MaxUsers))
		return entity.CapacityExceeded(), nil
	case errors.Is(err, entity.ErrAlreadyAdmitted):
		return entity.AlreadyAdmitted(), nil
	case errors.Is(err, entity.ErrNotFound):
		return entity.MustRegisterFirst(), nil
	case err != nil:
		return nil, err
	}

	name := "admission-" + uuid.NewString()[:8]
	link, err := g.inviter.CreateInvite(ctx, userId, name)
	if err != nil {
		// the user never saw an invite: hand the slot back
		if rerr := g.db.RevokeAdmission(context.WithoutCancel(ctx), userId); rerr != nil {
			log.Error("revoking admission after invite failure", sl.Err(rerr))
		}
		return nil, fmt.Errorf("create invite: %w", err)
	}

	if err = g.db.SetInviteLink(ctx, userId, link); err != nil {
		log.Warn("saving invite link", sl.Err(err))
	}
	log.With(slog.String("invite", name)).Info("user admitted")

	if g.listener != nil {
		g.listener.UserAdmitted(userId, link)
	}
	return entity.Admitted(link), nil
}

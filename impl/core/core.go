package core

import (
	"context"
	"fmt"
	"log/slog"
	"refgate/entity"
	"refgate/impl/gate"
	"refgate/impl/ledger"
	"refgate/impl/report"
	"refgate/internal/config"
	"refgate/lib/sl"
)

// Database is the user registry every component works against.
type Database interface {
	ledger.Database
	gate.Database
	report.Database
}

type AuthService interface {
	Authenticate(token string) error
}

// Core wires the referral ledger, the access gate and the reporting view over
// one registry; the bot and the HTTP API both talk to it.
type Core struct {
	db       Database
	ledger   *ledger.Ledger
	gate     *gate.Gate
	reporter *report.Reporter
	auth     AuthService
	required int
	log      *slog.Logger
}

func New(db Database, conf config.Referral, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	return &Core{
		db:     db,
		ledger: ledger.New(db, log),
		gate: gate.New(db, gate.Config{
			RequiredReferrals: conf.Required,
			MaxUsers:          conf.MaxUsers,
		}, log),
		reporter: report.New(db, conf.MaxUsers, conf.Leaderboard),
		required: conf.Required,
		log:      log.With(sl.Module("core")),
	}
}

func (c *Core) SetInviter(inviter gate.Inviter) {
	c.gate.SetInviter(inviter)
}

func (c *Core) SetAdmissionListener(listener gate.Listener) {
	c.gate.SetListener(listener)
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) Authenticate(token string) error {
	if c.auth == nil {
		return fmt.Errorf("auth service not connected")
	}
	return c.auth.Authenticate(token)
}

// Start registers the user, crediting the referrer named by token if valid.
func (c *Core) Start(ctx context.Context, userId int64, token string) (bool, error) {
	return c.ledger.RecordRegistration(ctx, userId, token)
}

// Stats returns the user's referral count against the requirement.
func (c *Core) Stats(ctx context.Context, userId int64) (*entity.Stats, error) {
	user, err := c.db.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &entity.Stats{
		Referrals: user.ReferralCount,
		Required:  c.required,
		Admitted:  user.Admitted,
	}, nil
}

func (c *Core) User(ctx context.Context, userId int64) (*entity.User, error) {
	return c.db.GetUser(ctx, userId)
}

func (c *Core) RequestAccess(ctx context.Context, userId int64) (*entity.AccessResult, error) {
	return c.gate.RequestAccess(ctx, userId)
}

func (c *Core) ForceAccess(ctx context.Context, userId int64) (*entity.AccessResult, error) {
	return c.gate.ForceAccess(ctx, userId)
}

func (c *Core) AdminReport(ctx context.Context) (*entity.Report, error) {
	return c.reporter.AdminReport(ctx)
}

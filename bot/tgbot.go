// Package bot is the Telegram surface of the invite gate.
//
//   - tgbot.go    TgBot, lifecycle (Start), the Core it dispatches to, the group inviter
//   - commands.go user commands: /start, /stats, /access, /help
//   - admin.go    /admin report and the /alluser bypass
//   - render.go   pure functions building every reply text
//   - menus.go    per-user command menus via BotCommandScope
//   - digest.go   admissions digest flushed to the admin on a cron schedule
//   - helpers.go  Sanitize, plainResponse, reportError
//
// Every reply is MarkdownV2; values coming from users or Telegram pass through Sanitize.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"refgate/entity"
	"refgate/lib/sl"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

const requestTimeout = 10 * time.Second

// BotConfig holds Telegram-specific configuration loaded from the YAML config file.
type BotConfig struct {
	GroupId           int64
	AdminId           int64
	BypassEnabled     bool
	DigestSchedule    string
	MinLogLevel       slog.Level
	RequiredReferrals int
	MaxUsers          int
}

// Core is the referral gate the commands dispatch to.
type Core interface {
	Start(ctx context.Context, userId int64, token string) (bool, error)
	Stats(ctx context.Context, userId int64) (*entity.Stats, error)
	RequestAccess(ctx context.Context, userId int64) (*entity.AccessResult, error)
	ForceAccess(ctx context.Context, userId int64) (*entity.AccessResult, error)
	AdminReport(ctx context.Context) (*entity.Report, error)
}

type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	core    Core
	updater *ext.Updater
	digest  *DigestBuffer
	config  BotConfig
}

func NewTgBot(apiKey string, core Core, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	return newTgBot(api, core, log, cfg), nil
}

// newTgBot builds the dispatcher and updater up front, so Start is the only
// goroutine that ever touches them.
func newTgBot(api *tgbotapi.Bot, core Core, log *slog.Logger, cfg BotConfig) *TgBot {
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = "@every 1h"
	}

	tgBot := &TgBot{
		log:    log.With(sl.Module("tgbot")),
		api:    api,
		core:   core,
		config: cfg,
	}
	tgBot.digest = NewDigestBuffer(func(text string) {
		tgBot.plainResponse(cfg.AdminId, text)
	})

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			tgBot.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	tgBot.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", tgBot.start))
	dispatcher.AddHandler(handlers.NewCommand("stats", tgBot.stats))
	dispatcher.AddHandler(handlers.NewCommand("access", tgBot.access))
	dispatcher.AddHandler(handlers.NewCommand("help", tgBot.help))

	dispatcher.AddHandler(handlers.NewCommand("alluser", tgBot.allUser))
	dispatcher.AddHandler(handlers.NewCommand("admin", tgBot.adminCmd))

	return tgBot
}

// SetCore attaches the gate the commands dispatch to; the bot is built
// before the core so the core's logger can forward to it.
func (t *TgBot) SetCore(core Core) {
	t.core = core
}

// Start polls for updates until ctx is done, then stops polling and flushes
// the digest. Returns at once if ctx is already done.
func (t *TgBot) Start(ctx context.Context) error {
	if t.core == nil {
		return fmt.Errorf("core not connected")
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := t.digest.Start(t.config.DigestSchedule); err != nil {
		return fmt.Errorf("starting digest: %w", err)
	}

	t.setDefaultCommands()
	t.setAdminCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		t.digest.Stop()
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.log.With(slog.String("username", t.api.Username)).Info("telegram bot started")

	<-ctx.Done()
	t.log.Info("stopping telegram bot")
	t.updater.Stop()
	t.digest.Stop()
	return nil
}

// CreateInvite issues a single-use link into the restricted group.
func (t *TgBot) CreateInvite(_ context.Context, userId int64, name string) (string, error) {
	link, err := t.api.CreateChatInviteLink(t.config.GroupId, &tgbotapi.CreateChatInviteLinkOpts{
		Name:        name,
		MemberLimit: 1,
		RequestOpts: &tgbotapi.RequestOpts{
			Timeout: requestTimeout,
		},
	})
	if err != nil {
		return "", fmt.Errorf("invite link for %d: %w", userId, err)
	}
	return link.InviteLink, nil
}

// UserAdmitted queues the admission for the admin digest.
func (t *TgBot) UserAdmitted(userId int64, inviteLink string) {
	t.digest.Add(userId, inviteLink)
}

// SendMessageWithLevel forwards log records to the admin chat.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < t.config.MinLogLevel {
		return
	}
	t.plainResponse(t.config.AdminId, msg)
}

func (t *TgBot) isAdmin(userId int64) bool {
	return userId == t.config.AdminId
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

package bot

import (
	"log/slog"
	"refgate/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// adminCmd answers the admin with the member count and the leaderboard.
// Anyone else gets no reply at all.
func (t *TgBot) adminCmd(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	if !t.isAdmin(userId) {
		t.log.With(sl.User(userId)).Debug("admin report ignored")
		return nil
	}

	c, cancel := commandContext()
	defer cancel()

	report, err := t.core.AdminReport(c)
	if err != nil {
		t.reportError(userId, "/admin", err)
		return nil
	}
	for _, part := range splitMessage(reportMessage(report), maxTelegramMessageLen) {
		t.plainResponse(userId, part)
	}
	return nil
}

// allUser issues the invite without the referral requirement. Open to the
// admin, and to everyone while the bypass is enabled.
func (t *TgBot) allUser(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	if !t.isAdmin(userId) && !t.config.BypassEnabled {
		t.log.With(sl.User(userId)).Debug("bypass disabled")
		return nil
	}

	c, cancel := commandContext()
	defer cancel()

	result, err := t.core.ForceAccess(c, userId)
	if err != nil {
		t.reportError(userId, "/alluser", err)
		return nil
	}
	t.log.With(
		sl.User(userId),
		slog.String("status", string(result.Status)),
	).Info("unconditional access")
	t.plainResponse(userId, accessMessage(result, t.config.MaxUsers))
	return nil
}

package bot

import (
	"errors"
	"refgate/entity"
	"refgate/impl/ledger"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// start registers the user, the optional deep-link argument naming the referrer,
// and answers with the user's own referral link.
func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id

	token := ""
	args := strings.Fields(ctx.EffectiveMessage.Text)
	if len(args) > 1 {
		token = args[1]
	}

	c, cancel := commandContext()
	defer cancel()

	if _, err := t.core.Start(c, userId, token); err != nil {
		t.reportError(userId, "/start", err)
		return nil
	}

	link := ledger.ReferralLink(t.api.Username, userId)
	t.plainResponse(userId, welcomeMessage(t.config.RequiredReferrals, link))
	if t.isAdmin(userId) {
		t.setAdminCommands()
	}
	return nil
}

func (t *TgBot) stats(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id

	c, cancel := commandContext()
	defer cancel()

	stats, err := t.core.Stats(c, userId)
	if errors.Is(err, entity.ErrNotFound) {
		t.plainResponse(userId, msgMustRegister)
		return nil
	}
	if err != nil {
		t.reportError(userId, "/stats", err)
		return nil
	}
	t.plainResponse(userId, statsMessage(stats))
	return nil
}

func (t *TgBot) access(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id

	c, cancel := commandContext()
	defer cancel()

	result, err := t.core.RequestAccess(c, userId)
	if err != nil {
		t.reportError(userId, "/access", err)
		return nil
	}
	t.plainResponse(userId, accessMessage(result, t.config.MaxUsers))
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	userId := ctx.EffectiveUser.Id
	t.plainResponse(userId, helpMessage(t.isAdmin(userId), t.config.BypassEnabled))
	return nil
}

package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Command lists for Telegram's menu button (the "/" icon in the chat input).
// The admin chat gets its own scope so /admin only shows up there.

var commandsUser = []tgbotapi.BotCommand{
	{Command: "start", Description: "Get your referral link"},
	{Command: "stats", Description: "Show referral progress"},
	{Command: "access", Description: "Get the invite link"},
	{Command: "help", Description: "Show available commands"},
}

var commandsAdmin = []tgbotapi.BotCommand{
	{Command: "start", Description: "Get your referral link"},
	{Command: "stats", Description: "Show referral progress"},
	{Command: "access", Description: "Get the invite link"},
	{Command: "alluser", Description: "Get the invite link without referrals"},
	{Command: "admin", Description: "Members count and top referrers"},
	{Command: "help", Description: "Show available commands"},
}

func userCommands(bypass bool) []tgbotapi.BotCommand {
	if !bypass {
		return commandsUser
	}
	commands := make([]tgbotapi.BotCommand, 0, len(commandsUser)+1)
	commands = append(commands, commandsUser[:len(commandsUser)-1]...)
	commands = append(commands, tgbotapi.BotCommand{Command: "alluser", Description: "Get the invite link without referrals"})
	return append(commands, commandsUser[len(commandsUser)-1])
}

// setDefaultCommands sets the bot menu for everybody but the admin.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(userCommands(t.config.BypassEnabled), &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}

func (t *TgBot) setAdminCommands() {
	_, err := t.api.SetMyCommands(commandsAdmin, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeChat{ChatId: t.config.AdminId},
	})
	if err != nil {
		t.log.Warn("setting admin commands", "chat_id", t.config.AdminId, "error", err)
	}
}

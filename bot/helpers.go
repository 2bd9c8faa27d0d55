package bot

import (
	"fmt"
	"log/slog"
	"refgate/lib/sl"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, unescape(text), &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

const reservedChars = "\\_*[]()~`>#+-=|{}.!"

// Sanitize escapes text for MarkdownV2.
func Sanitize(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

// unescape strips MarkdownV2 escapes for the plain-text fallback.
func unescape(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))
	escaped := false
	for _, char := range input {
		if char == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		sb.WriteRune(char)
	}
	return sb.String()
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// reportError logs the error, notifies the admin with details, and sends a neutral message to the user.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		sl.User(chatId),
		sl.Err(err),
	)
	if chatId != t.config.AdminId {
		t.plainResponse(t.config.AdminId, fmt.Sprintf(
			"Command `%s` failed\nUser: `%d`\nError: `%s`",
			Sanitize(command), chatId, Sanitize(err.Error()),
		))
	}
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}

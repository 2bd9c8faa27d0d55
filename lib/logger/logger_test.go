package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"refgate/lib/sl"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []slog.Level
}

func (n *recordingNotifier) SendMessageWithLevel(msg string, level slog.Level) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	n.levels = append(n.levels, level)
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer

	h, err := NewHandler("local", &buf)
	require.NoError(t, err)
	slog.New(h).Debug("visible")
	assert.Contains(t, buf.String(), "visible")

	buf.Reset()
	h, err = NewHandler("prod", &buf)
	require.NoError(t, err)
	slog.New(h).Debug("hidden")
	assert.Empty(t, buf.String())

	_, err = NewHandler("staging", &buf)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelError, ParseLevel("bogus"))
}

func TestTelegramHandlerForwardsAboveMinLevel(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewHandler("local", &buf)
	require.NoError(t, err)
	notifier := &recordingNotifier{}

	log := slog.New(NewTelegramHandler(base, notifier, slog.LevelError)).With(sl.Module("gate"))
	log.Info("admitted")
	log.Error("invite failed", sl.Err(errors.New("bad `chat`")), sl.User(42))

	assert.Contains(t, buf.String(), "admitted")
	assert.Contains(t, buf.String(), "invite failed")

	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Equal(t, slog.LevelError, notifier.levels[0])
	assert.Contains(t, msg, "*ERROR* `invite failed`")
	assert.Contains(t, msg, "mod: gate")
	assert.Contains(t, msg, "bad \\`chat\\`")
	assert.Contains(t, msg, "user\\_id: 42")
}

func TestTelegramHandlerGroup(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewHandler("local", &buf)
	require.NoError(t, err)
	notifier := &recordingNotifier{}

	log := slog.New(NewTelegramHandler(base, notifier, slog.LevelWarn)).WithGroup("db")
	log.Warn("slow query")

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "`db.slow query`")
}

func TestTelegramHandlerWithoutNotifier(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewHandler("prod", &buf)
	require.NoError(t, err)

	h := NewTelegramHandler(base, nil, slog.LevelError)
	slog.New(h).Error("stored only")
	assert.Contains(t, buf.String(), "stored only")
}

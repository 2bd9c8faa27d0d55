package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const maxTelegramMessageLen = 4096

type DigestEntry struct {
	UserId     int64
	InviteLink string
	Timestamp  time.Time
}

// DigestBuffer collects admissions and hands them to send as one message
// per cron tick.
type DigestBuffer struct {
	mu      sync.Mutex
	entries []DigestEntry
	send    func(text string)
	cron    *cron.Cron
}

func NewDigestBuffer(send func(text string)) *DigestBuffer {
	return &DigestBuffer{
		send: send,
	}
}

func (d *DigestBuffer) Add(userId int64, inviteLink string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, DigestEntry{
		UserId:     userId,
		InviteLink: inviteLink,
		Timestamp:  time.Now(),
	})
}

// Start schedules Flush; schedule is a cron spec or a descriptor like "@every 1h".
func (d *DigestBuffer) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, d.Flush); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	d.cron = c
	d.cron.Start()
	return nil
}

func (d *DigestBuffer) Flush() {
	d.mu.Lock()
	snapshot := d.entries
	d.entries = nil
	d.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	for _, part := range splitMessage(formatDigest(snapshot), maxTelegramMessageLen) {
		d.send(part)
	}
}

// Stop waits for a running flush, then flushes what is left.
func (d *DigestBuffer) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	d.Flush()
}

func formatDigest(entries []DigestEntry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Admissions* \\(%d\\)\n\n", len(entries)))
	for _, e := range entries {
		ts := e.Timestamp.Format("15:04")
		sb.WriteString(fmt.Sprintf("`%s` `%d` %s\n", ts, e.UserId, Sanitize(e.InviteLink)))
	}
	return sb.String()
}

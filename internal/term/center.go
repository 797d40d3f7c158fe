package term

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dosewatch/alertkit/internal/channel"
	"github.com/dosewatch/alertkit/internal/kv"
	"github.com/dosewatch/alertkit/internal/logging"
)

const (
	pendingPrefix   = "pending."
	deliveredPrefix = "delivered."
)

// centerRecord is the stored form of a notification inside the center's
// state file.
type centerRecord struct {
	Identifier  string    `json:"identifier"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	SoundName   string    `json:"soundName,omitempty"`
	Critical    bool      `json:"critical"`
	Repeats     bool      `json:"repeats,omitempty"`
	ScheduledAt time.Time `json:"scheduledAt"`
	DueAt       time.Time `json:"dueAt"`
}

// Center is a host notification service backed by a state file, so
// delivered notifications survive process restarts the way a platform
// notification center's do. Immediate requests deliver on the spot; delayed
// and repeating requests are parked as pending until Flush runs past their
// due time.
type Center struct {
	store  *kv.Store
	out    io.Writer
	now    func() time.Time
	logger logging.Logger
}

// NewCenter builds a Center over the given state store, printing delivered
// banners to out (nil means stdout).
func NewCenter(store *kv.Store, out io.Writer) *Center {
	if out == nil {
		out = os.Stdout
	}
	return &Center{
		store:  store,
		out:    out,
		now:    time.Now,
		logger: logging.GetGlobal(),
	}
}

// Schedule implements channel.NotificationCenter.
func (c *Center) Schedule(req channel.NotificationRequest) error {
	now := c.now()
	rec := centerRecord{
		Identifier:  req.Identifier,
		Title:       req.Title,
		Body:        req.Body,
		SoundName:   req.SoundName,
		Critical:    req.Critical,
		Repeats:     req.Repeats,
		ScheduledAt: now,
		DueAt:       now.Add(req.Delay),
	}
	if req.Delay > 0 {
		return c.put(pendingPrefix+req.Identifier, rec)
	}
	return c.deliver(rec)
}

func (c *Center) deliver(rec centerRecord) error {
	style := dialogStyle
	if rec.Critical {
		style = criticalDialogStyle
	}
	fmt.Fprintln(c.out, style.Render(titleStyle.Render(rec.Title)+"\n"+rec.Body))
	if rec.SoundName != "" {
		fmt.Fprint(c.out, "\a")
	}
	return c.put(deliveredPrefix+rec.Identifier, rec)
}

func (c *Center) put(key string, rec centerRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("notification center: %w", err)
	}
	return c.store.Set(key, string(raw))
}

// CancelPending implements channel.NotificationCenter.
func (c *Center) CancelPending(identifiers []string) {
	for _, id := range identifiers {
		if err := c.store.Delete(pendingPrefix + id); err != nil {
			c.logger.Warn("could not cancel pending notification", "identifier", id, "error", err)
		}
	}
}

// ClearDelivered implements channel.NotificationCenter.
func (c *Center) ClearDelivered(identifiers []string) {
	for _, id := range identifiers {
		if err := c.store.Delete(deliveredPrefix + id); err != nil {
			c.logger.Warn("could not clear delivered notification", "identifier", id, "error", err)
		}
	}
}

// ListDelivered implements channel.NotificationCenter.
func (c *Center) ListDelivered() ([]string, error) {
	var ids []string
	for _, key := range c.store.Keys() {
		if strings.HasPrefix(key, deliveredPrefix) {
			ids = append(ids, strings.TrimPrefix(key, deliveredPrefix))
		}
	}
	return ids, nil
}

// Flush delivers pending notifications whose due time has passed. A
// repeating notification is re-armed for its next period instead of being
// consumed. Returns how many were delivered.
func (c *Center) Flush() (int, error) {
	now := c.now()
	delivered := 0
	for _, key := range c.store.Keys() {
		if !strings.HasPrefix(key, pendingPrefix) {
			continue
		}
		raw, ok := c.store.Get(key)
		if !ok {
			continue
		}
		var rec centerRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			c.logger.Warn("dropping corrupt pending notification", "key", key, "error", err)
			_ = c.store.Delete(key)
			continue
		}
		if rec.DueAt.After(now) {
			continue
		}
		if err := c.deliver(rec); err != nil {
			return delivered, err
		}
		delivered++
		if rec.Repeats {
			period := rec.DueAt.Sub(rec.ScheduledAt)
			rec.ScheduledAt = now
			rec.DueAt = now.Add(period)
			if err := c.put(key, rec); err != nil {
				return delivered, err
			}
		} else {
			if err := c.store.Delete(key); err != nil {
				return delivered, err
			}
		}
	}
	return delivered, nil
}

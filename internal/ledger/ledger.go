// Package ledger provides the durable, append-mostly record of alert
// lifecycle events, backed by SQLite.
//
// All mutations and reads execute serially on a single writer goroutine so
// every call observes a consistent snapshot. The public API is asynchronous:
// operations take a completion callback and never block the caller on
// durability. Synchronous wrappers are provided for the CLI and tests.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dosewatch/alertkit/internal/alert"
	"github.com/dosewatch/alertkit/internal/clock"
	"github.com/dosewatch/alertkit/internal/hooks"
	"github.com/dosewatch/alertkit/internal/logging"
)

// DefaultRetention is how long records are kept after their issued date.
const DefaultRetention = 24 * time.Hour

// ErrClosed indicates an operation was submitted after Close.
var ErrClosed = errors.New("alert ledger: closed")

// timeLayout is fixed-width so stored timestamps compare correctly as
// strings inside SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// StoredAlert is the ledger's unit of storage. Content, sound, and metadata
// stay in their serialized form until a caller reconstructs the alert.
type StoredAlert struct {
	Identifier          alert.Identifier
	Trigger             alert.Trigger
	InterruptionLevel   alert.InterruptionLevel
	ForegroundContent   string
	BackgroundContent   string
	Sound               string
	Metadata            string
	IssuedDate          time.Time
	AcknowledgedDate    *time.Time
	RetractedDate       *time.Time
	SyncID              string
	ModificationCounter int64
}

// Alert reconstructs the in-memory alert from the stored record.
func (s StoredAlert) Alert() (alert.Alert, error) {
	fg, err := alert.DecodeContent(s.ForegroundContent)
	if err != nil {
		return alert.Alert{}, fmt.Errorf("stored alert %s: %w", s.Identifier, err)
	}
	bg, err := alert.DecodeContent(s.BackgroundContent)
	if err != nil {
		return alert.Alert{}, fmt.Errorf("stored alert %s: %w", s.Identifier, err)
	}
	if bg == nil {
		return alert.Alert{}, fmt.Errorf("stored alert %s: %w: missing background content", s.Identifier, alert.ErrSerialization)
	}
	snd, err := alert.DecodeSound(s.Sound)
	if err != nil {
		return alert.Alert{}, fmt.Errorf("stored alert %s: %w", s.Identifier, err)
	}
	meta, err := alert.DecodeMetadata(s.Metadata)
	if err != nil {
		return alert.Alert{}, fmt.Errorf("stored alert %s: %w", s.Identifier, err)
	}
	return alert.Alert{
		Identifier:        s.Identifier,
		Trigger:           s.Trigger,
		InterruptionLevel: s.InterruptionLevel,
		ForegroundContent: fg,
		BackgroundContent: *bg,
		Sound:             snd,
		Metadata:          meta,
	}, nil
}

// Ledger is the SQLite-backed alert ledger.
type Ledger struct {
	db        *sql.DB
	queue     chan func()
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// closeMu orders submissions against Close: perform holds the read
	// lock while enqueueing, so once Close flips closed under the write
	// lock, no closure can land on the queue after the drain.
	closeMu sync.RWMutex
	closed  bool

	clock           clock.Clock
	retention       time.Duration
	logger          logging.Logger
	exportBatchSize int

	// counter is only touched on the writer goroutine.
	counter int64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the time source used for purging and trigger math.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithRetention sets the retention window applied by opportunistic purge.
func WithRetention(d time.Duration) Option {
	return func(l *Ledger) { l.retention = d }
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(l *Ledger) { l.logger = log }
}

// WithExportBatchSize sets how many records ExportRange reads per page.
func WithExportBatchSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.exportBatchSize = n
		}
	}
}

// Open opens (or creates) the ledger at dbPath and starts the writer
// goroutine. Open blocks until the storage engine is ready; this is the only
// blocking call in the ledger's lifecycle.
func Open(dbPath string, opts ...Option) (*Ledger, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("alert ledger: db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("alert ledger: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("alert ledger: open db: %w", err)
	}

	l := &Ledger{
		db:              db,
		queue:           make(chan func(), 64),
		quit:            make(chan struct{}),
		clock:           clock.NewSystem(),
		retention:       DefaultRetention,
		logger:          logging.GetGlobal(),
		exportBatchSize: defaultExportBatchSize,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	l.wg.Add(1)
	go l.run()

	return l, nil
}

func (l *Ledger) init() error {
	if _, err := l.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("alert ledger: set busy timeout: %w", err)
	}
	if _, err := l.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("alert ledger: create schema: %w", err)
	}

	var value string
	err := l.db.QueryRow(`SELECT value FROM ledger_meta WHERE key = 'modification_counter'`).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := l.db.Exec(`INSERT INTO ledger_meta (key, value) VALUES ('modification_counter', '0')`); err != nil {
			return fmt.Errorf("alert ledger: seed modification counter: %w", err)
		}
	case err != nil:
		return fmt.Errorf("alert ledger: load modification counter: %w", err)
	default:
		counter, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("alert ledger: corrupt modification counter %q: %w", value, err)
		}
		l.counter = counter
	}
	return nil
}

// Close stops the writer goroutine after draining queued work and closes the
// underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		// Stop accepting work first, then signal run to drain and exit.
		l.closeMu.Lock()
		l.closed = true
		l.closeMu.Unlock()
		close(l.quit)
	})
	l.wg.Wait()
	return l.db.Close()
}

func (l *Ledger) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-l.quit:
			// Drain whatever was queued before Close.
			for {
				select {
				case fn := <-l.queue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// perform submits fn onto the writer goroutine. It reports false when the
// ledger is closed. The read lock spans the enqueue so a submission can
// never race past Close onto a queue the writer has stopped draining.
func (l *Ledger) perform(fn func()) bool {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		return false
	}
	l.queue <- fn
	return true
}

func (l *Ledger) nextCounter(tx *sql.Tx) (int64, error) {
	l.counter++
	if _, err := tx.Exec(`UPDATE ledger_meta SET value = ? WHERE key = 'modification_counter'`,
		strconv.FormatInt(l.counter, 10)); err != nil {
		return 0, err
	}
	return l.counter, nil
}

// Record appends a new record for alrt issued at issuedAt and triggers an
// opportunistic purge of expired records. completion may be nil.
func (l *Ledger) Record(alrt alert.Alert, issuedAt time.Time, completion func(error)) {
	done := func(err error) {
		if completion != nil {
			completion(err)
		}
	}
	if err := alrt.Validate(); err != nil {
		done(err)
		return
	}
	fg, err := alert.EncodeContent(alrt.ForegroundContent)
	if err != nil {
		done(err)
		return
	}
	bgContent := alrt.BackgroundContent
	bg, err := alert.EncodeContent(&bgContent)
	if err != nil {
		done(err)
		return
	}
	snd, err := alert.EncodeSound(alrt.Sound)
	if err != nil {
		done(err)
		return
	}
	meta, err := alert.EncodeMetadata(alrt.Metadata)
	if err != nil {
		done(err)
		return
	}

	ok := l.perform(func() {
		envVars := buildAlertHookEnv(alrt.Identifier, alrt.Trigger, alrt.InterruptionLevel, issuedAt)
		if err := hooks.Run("pre-record", envVars...); err != nil {
			done(fmt.Errorf("pre-record hook aborted: %w", err))
			return
		}
		err := l.insertRecord(alrt, issuedAt, fg, bg, snd, meta)
		if err != nil {
			l.logger.Error("could not record alert", "identifier", alrt.Identifier.Key(), "error", err)
			done(err)
			return
		}
		l.logger.Info("recorded alert", "identifier", alrt.Identifier.Key())
		l.purgeExpired()
		if err := hooks.Run("post-record", envVars...); err != nil {
			l.logger.Warn("post-record hook failed", "error", err)
		}
		done(nil)
	})
	if !ok {
		done(ErrClosed)
	}
}

func (l *Ledger) insertRecord(alrt alert.Alert, issuedAt time.Time, fg, bg, snd, meta string) error {
	tx, err := l.db.Begin()
	if err != nil {
		return storageErr("record", err)
	}
	counter, err := l.nextCounter(tx)
	if err != nil {
		_ = tx.Rollback()
		return storageErr("record", err)
	}
	var interval sql.NullFloat64
	if alrt.Trigger.Type != alert.TriggerImmediate {
		interval = sql.NullFloat64{Float64: alrt.Trigger.Interval.Seconds(), Valid: true}
	}
	_, err = tx.Exec(`
		INSERT INTO stored_alerts (
			alert_identifier, manager_identifier, issued_date,
			trigger_type, trigger_interval, fire_date, interruption_level,
			foreground_content, background_content, sound, metadata,
			sync_id, modification_counter
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alrt.Identifier.AlertIdentifier,
		alrt.Identifier.ManagerIdentifier,
		fmtTime(issuedAt),
		int(alrt.Trigger.Type),
		interval,
		fmtTime(alrt.Trigger.FireDate(issuedAt)),
		int(alrt.InterruptionLevel),
		nullString(fg),
		bg,
		nullString(snd),
		nullString(meta),
		uuid.NewString(),
		counter,
	)
	if err != nil {
		_ = tx.Rollback()
		return storageErr("record", err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return storageErr("record", err)
	}
	return nil
}

// Acknowledge marks every not-yet-acknowledged record matching identifier as
// acknowledged at the given time. A repeating identifier may have multiple
// live occurrences; all of them are updated.
func (l *Ledger) Acknowledge(identifier alert.Identifier, at time.Time, completion func(error)) {
	done := func(err error) {
		if completion != nil {
			completion(err)
		}
	}
	ok := l.perform(func() {
		rows, err := l.db.Query(`
			SELECT id FROM stored_alerts
			WHERE manager_identifier = ? AND alert_identifier = ? AND acknowledged_date IS NULL`,
			identifier.ManagerIdentifier, identifier.AlertIdentifier)
		if err != nil {
			done(storageErr("acknowledge", err))
			return
		}
		ids, err := collectIDs(rows)
		if err != nil {
			done(storageErr("acknowledge", err))
			return
		}
		if len(ids) == 0 {
			done(fmt.Errorf("alert ledger: acknowledge: %w: %s", alert.ErrNotFound, identifier))
			return
		}

		tx, err := l.db.Begin()
		if err != nil {
			done(storageErr("acknowledge", err))
			return
		}
		for _, id := range ids {
			counter, err := l.nextCounter(tx)
			if err != nil {
				_ = tx.Rollback()
				done(storageErr("acknowledge", err))
				return
			}
			if _, err := tx.Exec(
				`UPDATE stored_alerts SET acknowledged_date = ?, modification_counter = ? WHERE id = ?`,
				fmtTime(at), counter, id); err != nil {
				_ = tx.Rollback()
				done(storageErr("acknowledge", err))
				return
			}
		}
		if err := tx.Commit(); err != nil {
			_ = tx.Rollback()
			done(storageErr("acknowledge", err))
			return
		}
		l.logger.Info("recorded acknowledgement", "identifier", identifier.Key(), "records", len(ids))
		l.purgeExpired()
		if err := hooks.Run("post-acknowledge", identifierHookEnv(identifier, at)...); err != nil {
			l.logger.Warn("post-acknowledge hook failed", "error", err)
		}
		done(nil)
	})
	if !ok {
		done(ErrClosed)
	}
}

// Retract retracts the most recent not-yet-retracted record matching
// identifier. A record whose delayed or repeating trigger has not yet fired
// is deleted outright: it was never observed by a human, so no audit trace
// is required. Fired records are marked with a retracted date and retained.
func (l *Ledger) Retract(identifier alert.Identifier, at time.Time, completion func(error)) {
	done := func(err error) {
		if completion != nil {
			completion(err)
		}
	}
	ok := l.perform(func() {
		var (
			id          int64
			triggerType int
			fireDateStr string
		)
		err := l.db.QueryRow(`
			SELECT id, trigger_type, fire_date FROM stored_alerts
			WHERE manager_identifier = ? AND alert_identifier = ? AND retracted_date IS NULL
			ORDER BY modification_counter DESC LIMIT 1`,
			identifier.ManagerIdentifier, identifier.AlertIdentifier).Scan(&id, &triggerType, &fireDateStr)
		if errors.Is(err, sql.ErrNoRows) {
			done(fmt.Errorf("alert ledger: retract: %w: %s", alert.ErrNotFound, identifier))
			return
		}
		if err != nil {
			done(storageErr("retract", err))
			return
		}

		fireDate, err := parseTime(fireDateStr)
		if err != nil {
			done(fmt.Errorf("alert ledger: retract: %w: corrupt fire date %q", alert.ErrSerialization, fireDateStr))
			return
		}

		notYetFired := alert.TriggerType(triggerType) != alert.TriggerImmediate && fireDate.After(at)
		if notYetFired {
			if _, err := l.db.Exec(`DELETE FROM stored_alerts WHERE id = ?`, id); err != nil {
				done(storageErr("retract", err))
				return
			}
			l.logger.Info("deleted unfired retracted alert", "identifier", identifier.Key())
		} else {
			tx, err := l.db.Begin()
			if err != nil {
				done(storageErr("retract", err))
				return
			}
			counter, err := l.nextCounter(tx)
			if err != nil {
				_ = tx.Rollback()
				done(storageErr("retract", err))
				return
			}
			if _, err := tx.Exec(
				`UPDATE stored_alerts SET retracted_date = ?, modification_counter = ? WHERE id = ?`,
				fmtTime(at), counter, id); err != nil {
				_ = tx.Rollback()
				done(storageErr("retract", err))
				return
			}
			if err := tx.Commit(); err != nil {
				_ = tx.Rollback()
				done(storageErr("retract", err))
				return
			}
			l.logger.Info("recorded retraction", "identifier", identifier.Key())
		}
		l.purgeExpired()
		if err := hooks.Run("post-retract", identifierHookEnv(identifier, at)...); err != nil {
			l.logger.Warn("post-retract hook failed", "error", err)
		}
		done(nil)
	})
	if !ok {
		done(ErrClosed)
	}
}

// Purge deletes all records issued before the given time. Purge is
// idempotent.
func (l *Ledger) Purge(before time.Time, completion func(error)) {
	done := func(err error) {
		if completion != nil {
			completion(err)
		}
	}
	ok := l.perform(func() {
		done(l.purgeBefore(before))
	})
	if !ok {
		done(ErrClosed)
	}
}

// purgeExpired runs on the writer goroutine after every mutation.
func (l *Ledger) purgeExpired() {
	if err := l.purgeBefore(l.clock.Now().Add(-l.retention)); err != nil {
		l.logger.Warn("opportunistic purge failed", "error", err)
	}
}

func (l *Ledger) purgeBefore(before time.Time) error {
	res, err := l.db.Exec(`DELETE FROM stored_alerts WHERE issued_date < ?`, fmtTime(before))
	if err != nil {
		return storageErr("purge", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return storageErr("purge", err)
	}
	if deleted > 0 {
		l.logger.Info("purged expired alerts", "deleted", deleted, "before", fmtTime(before))
		if err := hooks.Run("cleanup",
			fmt.Sprintf("DELETED_COUNT=%d", deleted),
			fmt.Sprintf("CUTOFF_TIMESTAMP=%s", fmtTime(before))); err != nil {
			l.logger.Warn("cleanup hook failed", "error", err)
		}
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("alert ledger: %s: %w: %v", op, alert.ErrStorage, err)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func collectIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func buildAlertHookEnv(id alert.Identifier, trigger alert.Trigger, level alert.InterruptionLevel, issuedAt time.Time) []string {
	return []string{
		fmt.Sprintf("ALERT_IDENTIFIER=%s", id.AlertIdentifier),
		fmt.Sprintf("MANAGER_IDENTIFIER=%s", id.ManagerIdentifier),
		fmt.Sprintf("TRIGGER=%s", trigger.Type),
		fmt.Sprintf("INTERRUPTION_LEVEL=%s", level),
		fmt.Sprintf("ISSUED_AT=%s", fmtTime(issuedAt)),
	}
}

func identifierHookEnv(id alert.Identifier, at time.Time) []string {
	return []string{
		fmt.Sprintf("ALERT_IDENTIFIER=%s", id.AlertIdentifier),
		fmt.Sprintf("MANAGER_IDENTIFIER=%s", id.ManagerIdentifier),
		fmt.Sprintf("TIMESTAMP=%s", fmtTime(at)),
	}
}

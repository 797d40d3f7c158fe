package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
)

const storedAlertColumns = `
	alert_identifier, manager_identifier, issued_date,
	acknowledged_date, retracted_date,
	trigger_type, trigger_interval, fire_date, interruption_level,
	foreground_content, background_content, sound, metadata,
	sync_id, modification_counter`

// Anchor is an opaque continuation token for paginated queries. The zero
// counter resumes from the beginning of the original query window.
type Anchor struct {
	// ModificationCounter is the highest counter seen so far; the next page
	// starts strictly after it.
	ModificationCounter int64

	since         time.Time
	excludeFuture bool
}

// UnacknowledgedUnretracted returns every live record, meaning neither
// acknowledged nor retracted. An empty managerIdentifier matches all
// managers. Results are ordered by ascending modification counter.
func (l *Ledger) UnacknowledgedUnretracted(managerIdentifier string, completion func([]StoredAlert, error)) {
	query := `SELECT ` + storedAlertColumns + `
		FROM stored_alerts
		WHERE acknowledged_date IS NULL AND retracted_date IS NULL`
	args := []any{}
	if managerIdentifier != "" {
		query += ` AND manager_identifier = ?`
		args = append(args, managerIdentifier)
	}
	query += ` ORDER BY modification_counter ASC`
	l.query("unacknowledged", query, args, completion)
}

// AcknowledgedUnretractedRepeating returns acknowledged, unretracted records
// with a repeating trigger. These represent alerts whose repetition should
// resume after a process restart.
func (l *Ledger) AcknowledgedUnretractedRepeating(managerIdentifier string, completion func([]StoredAlert, error)) {
	query := `SELECT ` + storedAlertColumns + `
		FROM stored_alerts
		WHERE acknowledged_date IS NOT NULL AND retracted_date IS NULL AND trigger_type = ?`
	args := []any{int(alert.TriggerRepeating)}
	if managerIdentifier != "" {
		query += ` AND manager_identifier = ?`
		args = append(args, managerIdentifier)
	}
	query += ` ORDER BY modification_counter ASC`
	l.query("acknowledged repeating", query, args, completion)
}

// Matching returns every record for the given identifier, oldest first.
func (l *Ledger) Matching(identifier alert.Identifier, completion func([]StoredAlert, error)) {
	query := `SELECT ` + storedAlertColumns + `
		FROM stored_alerts
		WHERE manager_identifier = ? AND alert_identifier = ?
		ORDER BY modification_counter ASC`
	l.query("matching", query, []any{identifier.ManagerIdentifier, identifier.AlertIdentifier}, completion)
}

// ExecuteQuery starts a paginated scan of records issued at or after since.
// When excludeFuture is set, delayed and repeating records whose fire date
// is at or after the current instant are omitted. The returned anchor resumes the scan via
// ContinueQuery; pages are ordered by ascending modification counter, so a
// record is never returned twice under the same anchor chain.
func (l *Ledger) ExecuteQuery(since time.Time, excludeFuture bool, limit int, completion func(Anchor, []StoredAlert, error)) {
	l.ContinueQuery(Anchor{since: since, excludeFuture: excludeFuture}, limit, completion)
}

// ContinueQuery fetches the next page after anchor.
func (l *Ledger) ContinueQuery(anchor Anchor, limit int, completion func(Anchor, []StoredAlert, error)) {
	done := func(a Anchor, stored []StoredAlert, err error) {
		if completion != nil {
			completion(a, stored, err)
		}
	}
	if limit <= 0 {
		done(anchor, nil, nil)
		return
	}
	ok := l.perform(func() {
		query := `SELECT ` + storedAlertColumns + `
			FROM stored_alerts
			WHERE modification_counter > ? AND issued_date >= ?`
		args := []any{anchor.ModificationCounter, fmtTime(anchor.since)}
		if anchor.excludeFuture {
			query += ` AND NOT (trigger_type != ? AND fire_date >= ?)`
			args = append(args, int(alert.TriggerImmediate), fmtTime(l.clock.Now()))
		}
		query += ` ORDER BY modification_counter ASC LIMIT ?`
		args = append(args, limit)

		stored, err := l.selectStored(query, args)
		if err != nil {
			done(anchor, nil, storageErr("query", err))
			return
		}
		next := anchor
		if len(stored) > 0 {
			next.ModificationCounter = stored[len(stored)-1].ModificationCounter
		}
		done(next, stored, nil)
	})
	if !ok {
		done(anchor, nil, ErrClosed)
	}
}

// query runs a SELECT on the writer goroutine so reads serialize with writes.
func (l *Ledger) query(op, query string, args []any, completion func([]StoredAlert, error)) {
	done := func(stored []StoredAlert, err error) {
		if completion != nil {
			completion(stored, err)
		}
	}
	ok := l.perform(func() {
		stored, err := l.selectStored(query, args)
		if err != nil {
			done(nil, fmt.Errorf("alert ledger: %s: %w: %v", op, alert.ErrStorage, err))
			return
		}
		done(stored, nil)
	})
	if !ok {
		done(nil, ErrClosed)
	}
}

// selectStored scans rows into StoredAlerts, skipping rows that fail to
// decode. A corrupt row must not hide the healthy ones around it.
func (l *Ledger) selectStored(query string, args []any) ([]StoredAlert, error) {
	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stored []StoredAlert
	for rows.Next() {
		s, err := scanStoredAlert(rows)
		if err != nil {
			l.logger.Warn("skipping corrupt ledger row", "error", err)
			continue
		}
		stored = append(stored, s)
	}
	return stored, rows.Err()
}

func scanStoredAlert(rows *sql.Rows) (StoredAlert, error) {
	var (
		s                 StoredAlert
		issued            string
		acknowledged      sql.NullString
		retracted         sql.NullString
		triggerType       int
		triggerInterval   sql.NullFloat64
		fireDate          string
		interruptionLevel int
		fg, snd, meta     sql.NullString
	)
	if err := rows.Scan(
		&s.Identifier.AlertIdentifier, &s.Identifier.ManagerIdentifier, &issued,
		&acknowledged, &retracted,
		&triggerType, &triggerInterval, &fireDate, &interruptionLevel,
		&fg, &s.BackgroundContent, &snd, &meta,
		&s.SyncID, &s.ModificationCounter,
	); err != nil {
		return StoredAlert{}, err
	}

	if !alert.TriggerType(triggerType).IsValid() {
		return StoredAlert{}, fmt.Errorf("%w: unknown trigger type %d", alert.ErrSerialization, triggerType)
	}
	s.Trigger = alert.Trigger{Type: alert.TriggerType(triggerType)}
	if triggerInterval.Valid {
		s.Trigger.Interval = time.Duration(triggerInterval.Float64 * float64(time.Second))
	}
	if s.Trigger.Type != alert.TriggerImmediate && s.Trigger.Interval <= 0 {
		return StoredAlert{}, fmt.Errorf("%w: %s trigger with no interval", alert.ErrSerialization, s.Trigger.Type)
	}

	if !alert.InterruptionLevel(interruptionLevel).IsValid() {
		return StoredAlert{}, fmt.Errorf("%w: unknown interruption level %d", alert.ErrSerialization, interruptionLevel)
	}
	s.InterruptionLevel = alert.InterruptionLevel(interruptionLevel)

	issuedAt, err := parseTime(issued)
	if err != nil {
		return StoredAlert{}, fmt.Errorf("%w: corrupt issued date %q", alert.ErrSerialization, issued)
	}
	s.IssuedDate = issuedAt
	if acknowledged.Valid {
		t, err := parseTime(acknowledged.String)
		if err != nil {
			return StoredAlert{}, fmt.Errorf("%w: corrupt acknowledged date %q", alert.ErrSerialization, acknowledged.String)
		}
		s.AcknowledgedDate = &t
	}
	if retracted.Valid {
		t, err := parseTime(retracted.String)
		if err != nil {
			return StoredAlert{}, fmt.Errorf("%w: corrupt retracted date %q", alert.ErrSerialization, retracted.String)
		}
		s.RetractedDate = &t
	}

	s.ForegroundContent = fg.String
	s.Sound = snd.String
	s.Metadata = meta.String
	return s, nil
}

// Synchronous wrappers, used by the CLI and tests.

// RecordSync records and waits for durability.
func (l *Ledger) RecordSync(alrt alert.Alert, issuedAt time.Time) error {
	return await(func(done func(error)) { l.Record(alrt, issuedAt, done) })
}

// AcknowledgeSync acknowledges and waits.
func (l *Ledger) AcknowledgeSync(identifier alert.Identifier, at time.Time) error {
	return await(func(done func(error)) { l.Acknowledge(identifier, at, done) })
}

// RetractSync retracts and waits.
func (l *Ledger) RetractSync(identifier alert.Identifier, at time.Time) error {
	return await(func(done func(error)) { l.Retract(identifier, at, done) })
}

// PurgeSync purges and waits.
func (l *Ledger) PurgeSync(before time.Time) error {
	return await(func(done func(error)) { l.Purge(before, done) })
}

// UnacknowledgedUnretractedSync returns live records, blocking.
func (l *Ledger) UnacknowledgedUnretractedSync(managerIdentifier string) ([]StoredAlert, error) {
	return awaitStored(func(done func([]StoredAlert, error)) {
		l.UnacknowledgedUnretracted(managerIdentifier, done)
	})
}

// AcknowledgedUnretractedRepeatingSync returns resumable repeating records,
// blocking.
func (l *Ledger) AcknowledgedUnretractedRepeatingSync(managerIdentifier string) ([]StoredAlert, error) {
	return awaitStored(func(done func([]StoredAlert, error)) {
		l.AcknowledgedUnretractedRepeating(managerIdentifier, done)
	})
}

// MatchingSync returns all records for identifier, blocking.
func (l *Ledger) MatchingSync(identifier alert.Identifier) ([]StoredAlert, error) {
	return awaitStored(func(done func([]StoredAlert, error)) {
		l.Matching(identifier, done)
	})
}

// ExecuteQuerySync runs one page of a paginated scan, blocking.
func (l *Ledger) ExecuteQuerySync(since time.Time, excludeFuture bool, limit int) (Anchor, []StoredAlert, error) {
	return awaitQuery(func(done func(Anchor, []StoredAlert, error)) {
		l.ExecuteQuery(since, excludeFuture, limit, done)
	})
}

// ContinueQuerySync fetches the page after anchor, blocking.
func (l *Ledger) ContinueQuerySync(anchor Anchor, limit int) (Anchor, []StoredAlert, error) {
	return awaitQuery(func(done func(Anchor, []StoredAlert, error)) {
		l.ContinueQuery(anchor, limit, done)
	})
}

func await(run func(done func(error))) error {
	ch := make(chan error, 1)
	run(func(err error) { ch <- err })
	return <-ch
}

func awaitStored(run func(done func([]StoredAlert, error))) ([]StoredAlert, error) {
	type result struct {
		stored []StoredAlert
		err    error
	}
	ch := make(chan result, 1)
	run(func(stored []StoredAlert, err error) { ch <- result{stored, err} })
	r := <-ch
	return r.stored, r.err
}

func awaitQuery(run func(done func(Anchor, []StoredAlert, error))) (Anchor, []StoredAlert, error) {
	type result struct {
		anchor Anchor
		stored []StoredAlert
		err    error
	}
	ch := make(chan result, 1)
	run(func(a Anchor, stored []StoredAlert, err error) { ch <- result{a, stored, err} })
	r := <-ch
	return r.anchor, r.stored, r.err
}

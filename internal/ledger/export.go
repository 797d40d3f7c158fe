package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dosewatch/alertkit/internal/alert"
)

const defaultExportBatchSize = 500

// exportRecord is the wire shape for exported ledger records. Serialized
// content columns are re-embedded as raw JSON rather than double-encoded
// strings.
type exportRecord struct {
	AlertIdentifier     string          `json:"alertIdentifier"`
	ManagerIdentifier   string          `json:"managerIdentifier"`
	IssuedDate          string          `json:"issuedDate"`
	AcknowledgedDate    string          `json:"acknowledgedDate,omitempty"`
	RetractedDate       string          `json:"retractedDate,omitempty"`
	Trigger             string          `json:"trigger"`
	TriggerInterval     float64         `json:"triggerInterval,omitempty"`
	InterruptionLevel   string          `json:"interruptionLevel"`
	ForegroundContent   json.RawMessage `json:"foregroundContent,omitempty"`
	BackgroundContent   json.RawMessage `json:"backgroundContent"`
	Sound               json.RawMessage `json:"sound,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
	SyncID              string          `json:"syncIdentifier"`
	ModificationCounter int64           `json:"modificationCounter"`
}

func toExportRecord(s StoredAlert) exportRecord {
	rec := exportRecord{
		AlertIdentifier:     s.Identifier.AlertIdentifier,
		ManagerIdentifier:   s.Identifier.ManagerIdentifier,
		IssuedDate:          fmtTime(s.IssuedDate),
		Trigger:             s.Trigger.Type.String(),
		InterruptionLevel:   s.InterruptionLevel.String(),
		BackgroundContent:   json.RawMessage(s.BackgroundContent),
		SyncID:              s.SyncID,
		ModificationCounter: s.ModificationCounter,
	}
	if s.Trigger.Type != alert.TriggerImmediate {
		rec.TriggerInterval = s.Trigger.Interval.Seconds()
	}
	if s.AcknowledgedDate != nil {
		rec.AcknowledgedDate = fmtTime(*s.AcknowledgedDate)
	}
	if s.RetractedDate != nil {
		rec.RetractedDate = fmtTime(*s.RetractedDate)
	}
	if s.ForegroundContent != "" {
		rec.ForegroundContent = json.RawMessage(s.ForegroundContent)
	}
	if s.Sound != "" {
		rec.Sound = json.RawMessage(s.Sound)
	}
	if s.Metadata != "" {
		rec.Metadata = json.RawMessage(s.Metadata)
	}
	return rec
}

// ExportRange streams every record whose issued, acknowledged, or retracted
// date falls in [start, end) to w as a JSON array, reading in fixed-size
// pages so memory stays bounded regardless of how many records the range
// holds. progress, if non-nil, is called after each page with the fraction
// of records written so far. The export stops early when ctx is cancelled;
// whatever was already written stays written.
func (l *Ledger) ExportRange(ctx context.Context, w io.Writer, start, end time.Time, progress func(float64)) error {
	total, err := l.countRange(start, end)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "["); err != nil {
		return fmt.Errorf("alert ledger: export: write: %w", err)
	}

	// Paginate over the whole log and filter per record: a record issued
	// before start may still qualify through its acknowledged or retracted
	// date.
	var (
		written int64
		anchor  Anchor
	)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("alert ledger: export: %w", err)
		}
		var (
			page    []StoredAlert
			pageErr error
		)
		anchor, page, pageErr = l.ContinueQuerySync(anchor, l.exportBatchSize)
		if pageErr != nil {
			return pageErr
		}
		if len(page) == 0 {
			break
		}
		for _, s := range page {
			if !inExportRange(s, start, end) {
				continue
			}
			if written > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return fmt.Errorf("alert ledger: export: write: %w", err)
				}
			}
			buf, err := json.Marshal(toExportRecord(s))
			if err != nil {
				return fmt.Errorf("alert ledger: export: %w: %v", alert.ErrSerialization, err)
			}
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("alert ledger: export: write: %w", err)
			}
			written++
		}
		if progress != nil && total > 0 {
			fraction := float64(written) / float64(total)
			if fraction > 1 {
				fraction = 1
			}
			progress(fraction)
		}
	}

	if _, err := io.WriteString(w, "]"); err != nil {
		return fmt.Errorf("alert ledger: export: write: %w", err)
	}
	if progress != nil {
		progress(1)
	}
	l.logger.Info("exported ledger range", "records", written,
		"start", fmtTime(start), "end", fmtTime(end))
	return nil
}

func inExportRange(s StoredAlert, start, end time.Time) bool {
	inRange := func(t time.Time) bool {
		return !t.Before(start) && t.Before(end)
	}
	if inRange(s.IssuedDate) {
		return true
	}
	if s.AcknowledgedDate != nil && inRange(*s.AcknowledgedDate) {
		return true
	}
	return s.RetractedDate != nil && inRange(*s.RetractedDate)
}

func (l *Ledger) countRange(start, end time.Time) (int64, error) {
	type result struct {
		n   int64
		err error
	}
	startStr, endStr := fmtTime(start), fmtTime(end)
	ch := make(chan result, 1)
	ok := l.perform(func() {
		var n int64
		err := l.db.QueryRow(`
			SELECT COUNT(*) FROM stored_alerts
			WHERE (issued_date >= ? AND issued_date < ?)
			   OR (acknowledged_date IS NOT NULL AND acknowledged_date >= ? AND acknowledged_date < ?)
			   OR (retracted_date IS NOT NULL AND retracted_date >= ? AND retracted_date < ?)`,
			startStr, endStr, startStr, endStr, startStr, endStr).Scan(&n)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			ch <- result{0, storageErr("export", err)}
			return
		}
		ch <- result{n, nil}
	})
	if !ok {
		return 0, ErrClosed
	}
	r := <-ch
	return r.n, r.err
}

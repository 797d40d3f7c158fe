package manager

import (
	"context"
	"fmt"
	"io"
	"time"
)

const reportPageSize = 200

// GatherReport writes a human-readable diagnostic report of the full ledger
// to w: one line per record plus summary counts. Used by support exports.
func (m *Manager) GatherReport(ctx context.Context, w io.Writer) error {
	fmt.Fprintf(w, "## Alert ledger report (generated %s)\n\n",
		m.clock.Now().UTC().Format(time.RFC3339))

	var (
		total          int
		unacknowledged int
		retracted      int
	)
	anchor, page, err := m.ledger.ExecuteQuerySync(time.Time{}, false, reportPageSize)
	if err != nil {
		return fmt.Errorf("alert manager: report: %w", err)
	}
	for len(page) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("alert manager: report: %w", err)
		}
		for _, rec := range page {
			total++
			status := "acknowledged"
			switch {
			case rec.RetractedDate != nil:
				status = "retracted"
				retracted++
			case rec.AcknowledgedDate == nil:
				status = "unacknowledged"
				unacknowledged++
			}
			fmt.Fprintf(w, "%6d  %-30s  %-8s  %-13s  issued %s\n",
				rec.ModificationCounter,
				rec.Identifier.Key(),
				rec.Trigger.Type,
				status,
				rec.IssuedDate.UTC().Format(time.RFC3339))
		}
		anchor, page, err = m.ledger.ContinueQuerySync(anchor, reportPageSize)
		if err != nil {
			return fmt.Errorf("alert manager: report: %w", err)
		}
	}

	fmt.Fprintf(w, "\n%d records: %d unacknowledged, %d retracted\n",
		total, unacknowledged, retracted)
	return nil
}

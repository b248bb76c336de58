package bidding

import (
	"context"
	"log"
	"time"

	"github.com/fixlinkhq/fixlink/internal/alerts"
	"github.com/fixlinkhq/fixlink/internal/db"
)

// ExpireSoftLocks reverts every job whose exclusivity window has lapsed
// without a dealer confirmation. It is a pure time-driven transition:
// re-running it, or running it from several replicas at once, is harmless
// because each revert is guarded by the status compare-and-swap inside
// revertExpiredLock.
func ExpireSoftLocks(ctx context.Context, now time.Time) (int, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id FROM jobs WHERE status = 'soft_locked' AND soft_lock_expires_at <= $1`, now,
	)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()

	reverted := 0
	for _, id := range ids {
		ok, technicianID, err := revertExpiredLock(ctx, id)
		if err != nil {
			log.Printf("[sweep] soft-lock revert failed for job %s: %v", id, err)
			continue
		}
		if !ok {
			// Another sweeper or a dealer confirmation got there first.
			continue
		}
		reverted++
		log.Printf("[sweep] soft lock expired, job %s reopened for bidding", id)
		if technicianID != "" {
			title := "Soft lock expired"
			body := "The dealer did not confirm in time; the job is open for bidding again."
			_ = alerts.CreateNotification(technicianID, "softlock:expired", title, body, &id, nil)
		}
	}
	return reverted, nil
}

package bidding

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

var dbOnce sync.Once

func requireDB(t *testing.T) {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping database-backed test")
	}
	dbOnce.Do(db.Init)
}

func seedUser(t *testing.T, role string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO users (id, name, email, password, role) VALUES ($1, $2, $3, 'x', $4)`,
		id, role+" under test", id+"@test.local", role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Conn.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func seedJob(t *testing.T, dealerID string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO jobs (id, job_number, dealer_id, category, status, estimated_cost)
		 VALUES ($1, $2, $3, 'diagnostics', 'pending', 10000)`,
		id, "FXL-TEST-"+id[:8], dealerID)
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Conn.Exec(context.Background(), `DELETE FROM jobs WHERE id = $1`, id)
	})
	return id
}

func seedBid(t *testing.T, jobID, technicianID string, amount int64, status string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO job_bids (id, job_id, technician_id, amount, status, offered_by)
		 VALUES ($1, $2, $3, $4, $5, 'technician')`,
		id, jobID, technicianID, amount, status)
	if err != nil {
		t.Fatalf("seed bid: %v", err)
	}
	return id
}

func postAcceptBid(t *testing.T, jobID, dealerID, bidID string) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/jobs/"+jobID+"/accept-bid",
		strings.NewReader(fmt.Sprintf(`{"bid_id":%q}`, bidID)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(jobID)
	c.Set("user_id", dealerID)
	c.Set("role", "dealer")
	if err := AcceptBid(c); err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}
	return rec.Code
}

func TestAcceptBidSingleWinner(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	dealer := seedUser(t, "dealer")
	techA := seedUser(t, "technician")
	techB := seedUser(t, "technician")
	jobID := seedJob(t, dealer)
	bidA := seedBid(t, jobID, techA, 12_000, "pending")
	bidB := seedBid(t, jobID, techB, 11_000, "pending")

	if code := postAcceptBid(t, jobID, dealer, bidA); code != http.StatusOK {
		t.Fatalf("first accept returned %d, want %d", code, http.StatusOK)
	}
	if code := postAcceptBid(t, jobID, dealer, bidB); code != http.StatusConflict {
		t.Fatalf("second accept returned %d, want %d", code, http.StatusConflict)
	}

	var status string
	var lockedBy *string
	if err := db.Conn.QueryRow(ctx,
		`SELECT status, soft_locked_by FROM jobs WHERE id = $1`, jobID,
	).Scan(&status, &lockedBy); err != nil {
		t.Fatalf("fetch job: %v", err)
	}
	if status != "soft_locked" || lockedBy == nil || *lockedBy != techA {
		t.Fatalf("job is %s locked by %v, want soft_locked by the first winner", status, lockedBy)
	}

	var aStatus, bStatus string
	if err := db.Conn.QueryRow(ctx, `SELECT status FROM job_bids WHERE id = $1`, bidA).Scan(&aStatus); err != nil {
		t.Fatalf("fetch bid: %v", err)
	}
	if err := db.Conn.QueryRow(ctx, `SELECT status FROM job_bids WHERE id = $1`, bidB).Scan(&bStatus); err != nil {
		t.Fatalf("fetch bid: %v", err)
	}
	if aStatus != StatusAccepted {
		t.Fatalf("winning bid is %s, want %s", aStatus, StatusAccepted)
	}
	if bStatus != StatusPending {
		t.Fatalf("losing bid is %s, want untouched %s", bStatus, StatusPending)
	}
}

func TestExpireSoftLocksRunsTwiceWithoutChange(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	dealer := seedUser(t, "dealer")
	tech := seedUser(t, "technician")
	jobID := seedJob(t, dealer)
	bidID := seedBid(t, jobID, tech, 12_000, "accepted")

	_, err := db.Conn.Exec(ctx,
		`UPDATE jobs SET status = 'soft_locked', soft_locked_by = $1,
		        soft_locked_at = NOW() - INTERVAL '2 minutes',
		        soft_lock_expires_at = NOW() - INTERVAL '1 minute',
		        final_price = 12000
		 WHERE id = $2`, tech, jobID)
	if err != nil {
		t.Fatalf("arrange expired lock: %v", err)
	}

	if _, err := ExpireSoftLocks(ctx, time.Now()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}

	var status string
	var lockedBy *string
	var finalPrice *int64
	var updatedAt time.Time
	fetch := func() {
		t.Helper()
		err := db.Conn.QueryRow(ctx,
			`SELECT status, soft_locked_by, final_price, updated_at FROM jobs WHERE id = $1`, jobID,
		).Scan(&status, &lockedBy, &finalPrice, &updatedAt)
		if err != nil {
			t.Fatalf("fetch job: %v", err)
		}
	}
	fetch()
	if status != "pending" || lockedBy != nil || finalPrice != nil {
		t.Fatalf("after sweep job is %s (locked_by %v, price %v), want clean pending", status, lockedBy, finalPrice)
	}
	var bidStatus string
	if err := db.Conn.QueryRow(ctx, `SELECT status FROM job_bids WHERE id = $1`, bidID).Scan(&bidStatus); err != nil {
		t.Fatalf("fetch bid: %v", err)
	}
	if bidStatus != StatusPending {
		t.Fatalf("bid is %s after sweep, want reopened %s", bidStatus, StatusPending)
	}

	firstUpdatedAt := updatedAt

	// Re-running must leave the already-reverted job alone.
	if _, err := ExpireSoftLocks(ctx, time.Now()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	fetch()
	if status != "pending" || lockedBy != nil || finalPrice != nil {
		t.Fatalf("second sweep changed the job: %s (locked_by %v, price %v)", status, lockedBy, finalPrice)
	}
	if !updatedAt.Equal(firstUpdatedAt) {
		t.Fatalf("second sweep rewrote the job row: updated_at moved from %v to %v", firstUpdatedAt, updatedAt)
	}
	if err := db.Conn.QueryRow(ctx, `SELECT status FROM job_bids WHERE id = $1`, bidID).Scan(&bidStatus); err != nil {
		t.Fatalf("fetch bid: %v", err)
	}
	if bidStatus != StatusPending {
		t.Fatalf("second sweep changed the bid to %s", bidStatus)
	}
}

package escrow

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
	ctx := context.Background()
	_, err := db.Conn.Exec(ctx,
		`INSERT INTO users (id, name, email, password, role) VALUES ($1, $2, $3, 'x', $4)`,
		id, role+" under test", id+"@test.local", role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := db.Conn.Exec(ctx, `INSERT INTO wallets (user_id) VALUES ($1)`, id); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Conn.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func seedWaitingJob(t *testing.T, dealerID, technicianID string, price int64) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO jobs (id, job_number, dealer_id, category, status, estimated_cost,
		        soft_locked_by, soft_locked_at, soft_lock_expires_at, payment_deadline_at,
		        final_price, price_locked)
		 VALUES ($1, $2, $3, 'diagnostics', 'waiting_for_payment', $4,
		        $5, NOW(), NOW(), NOW() + INTERVAL '30 minutes', $4, TRUE)`,
		id, "FXL-TEST-"+id[:8], dealerID, price, technicianID)
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = db.Conn.Exec(ctx, `DELETE FROM warranty_holds WHERE job_id = $1`, id)
		_, _ = db.Conn.Exec(ctx, `DELETE FROM job_payments WHERE job_id = $1`, id)
		_, _ = db.Conn.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	})
	return id
}

func seedPendingPayment(t *testing.T, jobID, dealerID, technicianID string) string {
	t.Helper()
	intentID := "intent-" + uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO job_payments (id, job_id, dealer_id, technician_id, intent_id, gross_amount,
		        commission_type, commission_value, commission_amount, net_amount, status)
		 VALUES ($1, $2, $3, $4, $5, 10000, 'percentage', 1500, 1500, 8500, 'pending')`,
		uuid.New().String(), jobID, dealerID, technicianID, intentID)
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return intentID
}

func postWebhook(t *testing.T, intentID, status string) int {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments",
		strings.NewReader(fmt.Sprintf(`{"intent_id":%q,"status":%q}`, intentID, status)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := PaymentWebhook(e.NewContext(req, rec)); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	return rec.Code
}

func walletOf(t *testing.T, userID string) (balance, escrow int64) {
	t.Helper()
	err := db.Conn.QueryRow(context.Background(),
		`SELECT balance, escrow FROM wallets WHERE user_id = $1`, userID,
	).Scan(&balance, &escrow)
	if err != nil {
		t.Fatalf("fetch wallet: %v", err)
	}
	return balance, escrow
}

// Walks one payment from capture through release to the warranty payout and
// checks the wallet figures at every step: escrow always equals the net still
// held, balance only grows when a leg actually settles.
func TestWalletEscrowFollowsPaymentLifecycle(t *testing.T) {
	requireDB(t)
	t.Setenv("WARRANTY_HOLD_PERCENT", "10")
	ctx := context.Background()

	dealer := seedUser(t, "dealer")
	tech := seedUser(t, "technician")
	jobID := seedWaitingJob(t, dealer, tech, 10_000)
	intentID := seedPendingPayment(t, jobID, dealer, tech)

	if code := postWebhook(t, intentID, "approved"); code != http.StatusOK {
		t.Fatalf("capture returned %d, want %d", code, http.StatusOK)
	}
	if balance, escrow := walletOf(t, tech); balance != 0 || escrow != 8_500 {
		t.Fatalf("after capture wallet = %d/%d, want balance 0, escrow 8500", balance, escrow)
	}

	// A replayed callback must not double-count.
	if code := postWebhook(t, intentID, "approved"); code != http.StatusConflict {
		t.Fatalf("replayed capture returned %d, want %d", code, http.StatusConflict)
	}
	if _, escrow := walletOf(t, tech); escrow != 8_500 {
		t.Fatalf("replayed capture moved escrow to %d", escrow)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	rel, err := ReleaseInTx(ctx, tx, jobID)
	if err != nil {
		tx.Rollback(ctx)
		t.Fatalf("release: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if rel.Immediate != 7_650 || rel.HoldAmount != 850 {
		t.Fatalf("release split = %d/%d, want 7650/850", rel.Immediate, rel.HoldAmount)
	}
	if balance, escrow := walletOf(t, tech); balance != 7_650 || escrow != 850 {
		t.Fatalf("after release wallet = %d/%d, want balance 7650, escrow 850", balance, escrow)
	}

	var holdPaymentID string
	err = db.Conn.QueryRow(ctx,
		`SELECT id FROM job_payments WHERE job_id = $1 AND payment_type = 'warranty_hold'`, jobID,
	).Scan(&holdPaymentID)
	if err != nil {
		t.Fatalf("fetch hold payment: %v", err)
	}
	tx, err = db.Conn.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := ReleaseHoldInTx(ctx, tx, holdPaymentID, false); err != nil {
		tx.Rollback(ctx)
		t.Fatalf("release hold: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if balance, escrow := walletOf(t, tech); balance != 8_500 || escrow != 0 {
		t.Fatalf("after hold payout wallet = %d/%d, want balance 8500, escrow 0", balance, escrow)
	}
}

// A cancelled job's escrowed payment goes back to the dealer gross and the
// technician's escrow figure drops with it.
func TestWalletEscrowClearedOnRefund(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	dealer := seedUser(t, "dealer")
	tech := seedUser(t, "technician")
	jobID := seedWaitingJob(t, dealer, tech, 10_000)
	intentID := seedPendingPayment(t, jobID, dealer, tech)

	if code := postWebhook(t, intentID, "approved"); code != http.StatusOK {
		t.Fatalf("capture returned %d, want %d", code, http.StatusOK)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ref, err := RefundInTx(ctx, tx, jobID, "test cancellation")
	if err != nil {
		tx.Rollback(ctx)
		t.Fatalf("refund: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if ref.Amount != 10_000 || ref.DealerID != dealer {
		t.Fatalf("refund = %d to %s, want 10000 to the dealer", ref.Amount, ref.DealerID)
	}
	if balance, escrow := walletOf(t, tech); balance != 0 || escrow != 0 {
		t.Fatalf("technician wallet = %d/%d after refund, want 0/0", balance, escrow)
	}
	if balance, _ := walletOf(t, dealer); balance != 10_000 {
		t.Fatalf("dealer balance = %d after refund, want 10000", balance)
	}
}

// The payment-deadline sweep is re-runnable: a second pass over an already
// reverted job changes nothing.
func TestExpirePaymentDeadlinesRunsTwiceWithoutChange(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	dealer := seedUser(t, "dealer")
	tech := seedUser(t, "technician")
	jobID := seedWaitingJob(t, dealer, tech, 10_000)
	intentID := seedPendingPayment(t, jobID, dealer, tech)
	_, err := db.Conn.Exec(ctx,
		`UPDATE jobs SET payment_deadline_at = NOW() - INTERVAL '1 minute' WHERE id = $1`, jobID)
	if err != nil {
		t.Fatalf("arrange lapsed deadline: %v", err)
	}

	if _, err := ExpirePaymentDeadlines(ctx, time.Now()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}

	var jobStatus, paymentStatus string
	var updatedAt time.Time
	fetch := func() {
		t.Helper()
		err := db.Conn.QueryRow(ctx,
			`SELECT status, updated_at FROM jobs WHERE id = $1`, jobID).Scan(&jobStatus, &updatedAt)
		if err != nil {
			t.Fatalf("fetch job: %v", err)
		}
		err = db.Conn.QueryRow(ctx,
			`SELECT status FROM job_payments WHERE intent_id = $1`, intentID).Scan(&paymentStatus)
		if err != nil {
			t.Fatalf("fetch payment: %v", err)
		}
	}
	fetch()
	if jobStatus != "pending" || paymentStatus != StatusFailed {
		t.Fatalf("after sweep job is %s, payment %s; want pending job and failed payment", jobStatus, paymentStatus)
	}
	firstUpdatedAt := updatedAt

	if _, err := ExpirePaymentDeadlines(ctx, time.Now()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	fetch()
	if jobStatus != "pending" || paymentStatus != StatusFailed {
		t.Fatalf("second sweep changed state: job %s, payment %s", jobStatus, paymentStatus)
	}
	if !updatedAt.Equal(firstUpdatedAt) {
		t.Fatalf("second sweep rewrote the job row: updated_at moved from %v to %v", firstUpdatedAt, updatedAt)
	}
}

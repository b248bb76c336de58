package sweeper

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/bidding"
	"github.com/fixlinkhq/fixlink/internal/config"
	"github.com/fixlinkhq/fixlink/internal/escrow"
	"github.com/fixlinkhq/fixlink/internal/warranty"
)

// Result summarizes one sweep pass.
type Result struct {
	SoftLocksExpired int `json:"soft_locks_expired"`
	PaymentsExpired  int `json:"payments_expired"`
	HoldsReleased    int `json:"holds_released"`
}

// RunBackgroundSweep drives every time-based transition once: expired soft
// locks revert, lapsed payment windows reopen their jobs, and elapsed
// warranty holds pay out. Each underlying sweep is CAS-guarded, so running
// this concurrently from several replicas or twice in a row converges on
// the same end state.
func RunBackgroundSweep(ctx context.Context) (Result, error) {
	now := time.Now()
	var res Result
	var firstErr error

	n, err := bidding.ExpireSoftLocks(ctx, now)
	res.SoftLocksExpired = n
	if err != nil {
		log.Printf("[sweep] soft-lock pass failed: %v", err)
		firstErr = err
	}

	n, err = escrow.ExpirePaymentDeadlines(ctx, now)
	res.PaymentsExpired = n
	if err != nil {
		log.Printf("[sweep] payment-deadline pass failed: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	n, err = warranty.ReleaseExpired(ctx, now)
	res.HoldsReleased = n
	if err != nil {
		log.Printf("[sweep] warranty pass failed: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return res, firstErr
}

// Handle exposes the sweep over HTTP for external schedulers. A matching
// X-Sweep-Token header authorizes the call; without a configured token the
// route relies on the admin JWT guard in front of it.
// POST /internal/sweep
func Handle(c echo.Context) error {
	token := config.SweepToken()
	if token != "" {
		got := c.Request().Header.Get("X-Sweep-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid sweep token"})
		}
	} else if role, _ := c.Get("role").(string); role != "admin" && role != "superadmin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "sweep requires admin or a sweep token"})
	}

	res, err := RunBackgroundSweep(context.Background())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep completed with errors", "result": res})
	}
	return c.JSON(http.StatusOK, res)
}

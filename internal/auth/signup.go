package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/utils"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=dealer technician"`
	Region   string `json:"region"`
}

type SignupResponse struct {
	Token string `json:"token"`
}

// initialTrustScore is where every new account starts; the first history
// row anchors the audit trail.
const initialTrustScore = 50

// ===== Signup =====
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Role != "dealer" && req.Role != "technician" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be dealer or technician"})
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and a 6+ character password are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	ctx := context.Background()
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db transaction error"})
	}
	defer tx.Rollback(ctx)

	userID := uuid.New().String()
	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, name, email, password, role, region, trust_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, userID, req.Name, req.Email, string(hashed), req.Role, req.Region, initialTrustScore)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already exists"})
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, created_at)
		VALUES ($1, 0, $2)
	`, userID, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "wallet creation failed"})
	}

	// The denormalized score and its history must never diverge, so the
	// opening row is written in the same transaction as the account.
	_, err = tx.Exec(ctx, `
		INSERT INTO trust_score_history (id, user_id, user_type, previous_score, new_score, reason_code, reason)
		VALUES ($1, $2, $3, $4, $4, 'initial', 'account created')
	`, uuid.New().String(), userID, req.Role, initialTrustScore)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "trust history creation failed"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction failed"})
	}

	signed, err := utils.GenerateToken(userID, req.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	return c.JSON(http.StatusOK, SignupResponse{Token: signed})
}

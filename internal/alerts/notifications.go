package alerts

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixlinkhq/fixlink/internal/db"
)

// CreateNotification writes an in-app notification row. Failures are the
// caller's to ignore; notifications never block a state change.
func CreateNotification(userID, typ, title, body string, ref *string, meta *string) error {
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO notifications (user_id, type, title, body, reference, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, typ, title, body, ref, meta,
	)
	return err
}

type notificationRow struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      *string    `json:"body,omitempty"`
	Reference *string    `json:"reference,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// ListNotifications returns the caller's notifications, newest first.
// GET /notifications
func ListNotifications(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, type, title, body, reference, created_at, read_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT 100`, userID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch notifications"})
	}
	defer rows.Close()

	out := []notificationRow{}
	for rows.Next() {
		var n notificationRow
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read notifications"})
		}
		out = append(out, n)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// MarkNotificationRead stamps a single notification as read.
// POST /notifications/:id/read
func MarkNotificationRead(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	tag, err := db.Conn.Exec(context.Background(),
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		id, userID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update notification"})
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found or already read"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "notification marked read"})
}

package models

import (
    "time"
)

// ActivityRecord is an append-only audit row. Records are immutable once
// written; the timestamp is assigned by the server.
type ActivityRecord struct {
    ID          int64     `json:"id" db:"id"`
    UserID      string    `json:"usuario_id" db:"user_id"`
    Action      string    `json:"tipo" db:"action"`
    Description *string   `json:"descripcion" db:"description"`
    CreatedAt   time.Time `json:"fecha" db:"created_at"`
}

// ActivityWithUser joins the acting user's name for log listings.
type ActivityWithUser struct {
    ActivityRecord
    UserName string `json:"usuario"`
}

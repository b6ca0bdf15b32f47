package controllers

import (
    "database/sql"
    "fmt"
    "net/http"
    "strconv"

    "github.com/gin-gonic/gin"
    "go.uber.org/zap"

    "github.com/maria162003/clinikdent-v2-0-sub004/models"
    "github.com/maria162003/clinikdent-v2-0-sub004/security"
)

type ActivityController struct {
    db     *sql.DB
    logger *zap.Logger
}

func NewActivityController(db *sql.DB, logger *zap.Logger) *ActivityController {
    return &ActivityController{db: db, logger: logger}
}

type RecordActivityInput struct {
    UsuarioID   string  `json:"usuario_id" binding:"required"`
    Tipo        string  `json:"tipo" binding:"required"`
    Descripcion *string `json:"descripcion"`
}

// RecordActivity appends one immutable row to the activity log. The
// timestamp is assigned by the database.
func (ac *ActivityController) RecordActivity(c *gin.Context) {
    var input RecordActivityInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "usuario_id y tipo son obligatorios", err.Error())
        return
    }

    _, err := ac.db.Exec(`
        INSERT INTO activity_log (user_id, action, description)
        VALUES ($1, $2, $3)
    `, input.UsuarioID, input.Tipo, input.Descripcion)
    if err != nil {
        ac.logger.Error("failed to record activity", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo registrar la actividad")
        return
    }

    c.JSON(http.StatusOK, gin.H{"msg": "Actividad registrada"})
}

// GetActivity returns activity rows joined with the acting user's name,
// newest first. Optional filters: fecha (YYYY-MM-DD) and tipo. Results are
// paginated; callers page through large logs with limit/offset.
func (ac *ActivityController) GetActivity(c *gin.Context) {
    fecha := c.Query("fecha")
    tipo := c.Query("tipo")
    limitStr := c.DefaultQuery("limit", "50")
    offsetStr := c.DefaultQuery("offset", "0")

    limit, err := strconv.Atoi(limitStr)
    if err != nil || limit <= 0 {
        limit = 50
    }
    offset, err := strconv.Atoi(offsetStr)
    if err != nil || offset < 0 {
        offset = 0
    }

    query := `
        SELECT a.id, a.user_id, a.action, a.description, a.created_at,
               u.name || ' ' || u.surname AS user_name
        FROM activity_log a
        JOIN users u ON u.id = a.user_id
        WHERE 1=1
    `
    args := []interface{}{}
    argIndex := 1

    if fecha != "" {
        query += fmt.Sprintf(" AND DATE(a.created_at) = $%d", argIndex)
        args = append(args, fecha)
        argIndex++
    }
    if tipo != "" {
        query += fmt.Sprintf(" AND a.action = $%d", argIndex)
        args = append(args, tipo)
        argIndex++
    }

    query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
    args = append(args, limit, offset)

    rows, err := ac.db.Query(query, args...)
    if err != nil {
        ac.logger.Error("failed to query activity log", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo consultar la actividad")
        return
    }
    defer rows.Close()

    records := []models.ActivityWithUser{}
    for rows.Next() {
        var rec models.ActivityWithUser
        err := rows.Scan(&rec.ID, &rec.UserID, &rec.Action, &rec.Description, &rec.CreatedAt, &rec.UserName)
        if err != nil {
            ac.logger.Error("failed to scan activity row", zap.Error(err))
            security.SendDatabaseError(c, "No se pudo consultar la actividad")
            return
        }
        records = append(records, rec)
    }

    c.JSON(http.StatusOK, records)
}

// logActivity records an action from inside another flow. Failures are
// logged and swallowed so they never fail the main operation.
func logActivity(db *sql.DB, logger *zap.Logger, userID, action, description string) {
    var desc *string
    if description != "" {
        desc = &description
    }
    _, err := db.Exec(`
        INSERT INTO activity_log (user_id, action, description)
        VALUES ($1, $2, $3)
    `, userID, action, desc)
    if err != nil {
        logger.Warn("failed to log activity",
            zap.String("action", action), zap.Error(err))
    }
}

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
    "github.com/maria162003/clinikdent-v2-0-sub004/utils"
)

type UserController struct {
    db      *sql.DB
    logger  *zap.Logger
    lockout *utils.LockoutPolicy
}

func NewUserController(db *sql.DB, logger *zap.Logger, lockout *utils.LockoutPolicy) *UserController {
    return &UserController{db: db, logger: logger, lockout: lockout}
}

func (uc *UserController) GetUsers(c *gin.Context) {
    rol := c.Query("rol")
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
        SELECT u.id, u.name, u.surname, u.email, u.role_id, r.name, u.active, u.created_at
        FROM users u
        JOIN roles r ON r.id = u.role_id
        WHERE u.active = true
    `
    args := []interface{}{}
    argIndex := 1

    if rol != "" {
        query += fmt.Sprintf(" AND r.name = $%d", argIndex)
        args = append(args, rol)
        argIndex++
    }

    query += fmt.Sprintf(" ORDER BY u.created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
    args = append(args, limit, offset)

    rows, err := uc.db.Query(query, args...)
    if err != nil {
        uc.logger.Error("failed to list users", zap.Error(err))
        security.SendDatabaseError(c, "No se pudieron consultar los usuarios")
        return
    }
    defer rows.Close()

    users := []models.User{}
    for rows.Next() {
        var u models.User
        err := rows.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.RoleID, &u.RoleName, &u.Active, &u.CreatedAt)
        if err != nil {
            uc.logger.Error("failed to scan user row", zap.Error(err))
            security.SendDatabaseError(c, "No se pudieron consultar los usuarios")
            return
        }
        users = append(users, u)
    }

    c.JSON(http.StatusOK, users)
}

func (uc *UserController) GetUser(c *gin.Context) {
    id := c.Param("id")

    var u models.User
    err := uc.db.QueryRow(`
        SELECT u.id, u.name, u.surname, u.email, u.role_id, r.name, u.active, u.created_at
        FROM users u
        JOIN roles r ON r.id = u.role_id
        WHERE u.id = $1
    `, id).Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.RoleID, &u.RoleName, &u.Active, &u.CreatedAt)
    if err == sql.ErrNoRows {
        security.SendNotFoundError(c, "usuario")
        return
    }
    if err != nil {
        uc.logger.Error("failed to get user", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo consultar el usuario")
        return
    }

    c.JSON(http.StatusOK, u)
}

type UpdateUserInput struct {
    Nombre   *string `json:"nombre"`
    Apellido *string `json:"apellido"`
    Correo   *string `json:"correo"`
    RolID    *int    `json:"rol_id"`
}

func (uc *UserController) UpdateUser(c *gin.Context) {
    id := c.Param("id")
    var input UpdateUserInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "Datos inválidos", err.Error())
        return
    }

    query := "UPDATE users SET"
    args := []interface{}{}
    argIndex := 1
    updates := []string{}

    if input.Nombre != nil {
        updates = append(updates, fmt.Sprintf(" name = $%d", argIndex))
        args = append(args, *input.Nombre)
        argIndex++
    }
    if input.Apellido != nil {
        updates = append(updates, fmt.Sprintf(" surname = $%d", argIndex))
        args = append(args, *input.Apellido)
        argIndex++
    }
    if input.Correo != nil {
        var existingID string
        err := uc.db.QueryRow(`SELECT id FROM users WHERE email = $1 AND id <> $2`, *input.Correo, id).Scan(&existingID)
        if err == nil {
            c.JSON(http.StatusConflict, gin.H{"error": "El correo ya está registrado"})
            return
        }
        updates = append(updates, fmt.Sprintf(" email = $%d", argIndex))
        args = append(args, *input.Correo)
        argIndex++
    }
    if input.RolID != nil {
        updates = append(updates, fmt.Sprintf(" role_id = $%d", argIndex))
        args = append(args, *input.RolID)
        argIndex++
    }

    if len(updates) == 0 {
        security.SendValidationError(c, "No hay campos para actualizar", nil)
        return
    }

    joined := updates[0]
    for _, u := range updates[1:] {
        joined += "," + u
    }
    query += joined + fmt.Sprintf(" WHERE id = $%d", argIndex)
    args = append(args, id)

    result, err := uc.db.Exec(query, args...)
    if err != nil {
        uc.logger.Error("failed to update user", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo actualizar el usuario")
        return
    }

    rowsAffected, err := result.RowsAffected()
    if err != nil {
        security.SendDatabaseError(c, "No se pudo actualizar el usuario")
        return
    }
    if rowsAffected == 0 {
        security.SendNotFoundError(c, "usuario")
        return
    }

    c.JSON(http.StatusOK, gin.H{"msg": "Usuario actualizado"})
}

// DeactivateUser soft-deletes an account. User rows are never removed.
func (uc *UserController) DeactivateUser(c *gin.Context) {
    id := c.Param("id")

    result, err := uc.db.Exec(`UPDATE users SET active = false WHERE id = $1`, id)
    if err != nil {
        uc.logger.Error("failed to deactivate user", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo desactivar el usuario")
        return
    }

    rowsAffected, err := result.RowsAffected()
    if err != nil {
        security.SendDatabaseError(c, "No se pudo desactivar el usuario")
        return
    }
    if rowsAffected == 0 {
        security.SendNotFoundError(c, "usuario")
        return
    }

    c.JSON(http.StatusOK, gin.H{"msg": "Usuario desactivado"})
}

type UnlockUserInput struct {
    Forzar bool `json:"forzar"`
}

// UnlockUser clears a login lock. Without "forzar" it only releases locks
// whose window already expired and otherwise reports the minutes left (or
// that the lock is indefinite); with "forzar" an administrator overrides the
// lock outright.
func (uc *UserController) UnlockUser(c *gin.Context) {
    id := c.Param("id")

    var input UnlockUserInput
    // Body is optional here.
    _ = c.ShouldBindJSON(&input)

    if input.Forzar {
        err := uc.lockout.RecordSuccess(id)
        if err == utils.ErrUserNotFound {
            security.SendNotFoundError(c, "usuario")
            return
        }
        if err != nil {
            uc.logger.Error("failed to force unlock", zap.Error(err))
            security.SendDatabaseError(c, "No se pudo desbloquear el usuario")
            return
        }
        logActivity(uc.db, uc.logger, id, "desbloqueo_manual", "Cuenta desbloqueada por un administrador")
        c.JSON(http.StatusOK, gin.H{"msg": "Usuario desbloqueado"})
        return
    }

    result, err := uc.lockout.AttemptAutoUnlock(id)
    if err == utils.ErrUserNotFound {
        security.SendNotFoundError(c, "usuario")
        return
    }
    if err != nil {
        uc.logger.Error("failed to auto-unlock", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo desbloquear el usuario")
        return
    }

    switch {
    case result.AlreadyUnlocked:
        c.JSON(http.StatusOK, gin.H{"msg": "El usuario no está bloqueado"})
    case result.Unlocked:
        c.JSON(http.StatusOK, gin.H{"msg": "Bloqueo expirado, usuario desbloqueado"})
    case result.Indefinite:
        security.SendError(c, http.StatusConflict, security.CodeAccountLocked, "Cuenta bloqueada",
            "El bloqueo es indefinido; use forzar para desbloquear", nil)
    default:
        security.SendError(c, http.StatusConflict, security.CodeAccountLocked, "Cuenta bloqueada",
            fmt.Sprintf("El bloqueo expira en %d minutos", result.RemainingMinutes),
            gin.H{"remainingTime": result.RemainingMinutes})
    }
}

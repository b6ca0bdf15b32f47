package controllers

import (
    "database/sql"
    "fmt"
    "net/http"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "go.uber.org/zap"
    "golang.org/x/crypto/bcrypt"

    "github.com/maria162003/clinikdent-v2-0-sub004/mailer"
    "github.com/maria162003/clinikdent-v2-0-sub004/models"
    "github.com/maria162003/clinikdent-v2-0-sub004/security"
    "github.com/maria162003/clinikdent-v2-0-sub004/utils"
)

const refreshTokenTTL = 7 * 24 * time.Hour

type AuthController struct {
    db       *sql.DB
    logger   *zap.Logger
    tokens   *security.TokenManager
    lockout  *utils.LockoutPolicy
    mail     mailer.Sender
    resetTTL time.Duration
}

func NewAuthController(db *sql.DB, logger *zap.Logger, tokens *security.TokenManager,
    lockout *utils.LockoutPolicy, mail mailer.Sender, resetTTL time.Duration) *AuthController {
    return &AuthController{
        db:       db,
        logger:   logger,
        tokens:   tokens,
        lockout:  lockout,
        mail:     mail,
        resetTTL: resetTTL,
    }
}

// HealthCheck verifies the database connection.
func (a *AuthController) HealthCheck(c *gin.Context) {
    if err := a.db.Ping(); err != nil {
        c.JSON(http.StatusServiceUnavailable, gin.H{
            "status": "unhealthy",
            "error":  "Database connection failed",
        })
        return
    }

    c.JSON(http.StatusOK, gin.H{
        "status":    "healthy",
        "service":   "clinikdent",
        "timestamp": time.Now().Unix(),
    })
}

type RegisterInput struct {
    Nombre   string `json:"nombre" binding:"required,min=2,max=100"`
    Apellido string `json:"apellido" binding:"required,min=2,max=100"`
    Correo   string `json:"correo" binding:"required,email"`
    Password string `json:"password" binding:"required"`
    Rol      string `json:"rol"`
}

func (a *AuthController) Register(c *gin.Context) {
    var input RegisterInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "Datos de registro inválidos", err.Error())
        return
    }

    if check := security.ValidatePassword(input.Password); !check.IsValid {
        security.SendValidationError(c, "La contraseña no cumple la política", check.Errors)
        return
    }

    var existingID string
    err := a.db.QueryRow(`SELECT id FROM users WHERE email = $1`, input.Correo).Scan(&existingID)
    if err == nil {
        c.JSON(http.StatusConflict, gin.H{"error": "El correo ya está registrado"})
        return
    }

    // Self-registration always gets the patient role; anything else is
    // assigned later by an administrator.
    roleName := "paciente"
    var roleID int
    err = a.db.QueryRow(`SELECT id FROM roles WHERE name = $1`, roleName).Scan(&roleID)
    if err != nil {
        a.logger.Error("failed to resolve default role", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo completar el registro")
        return
    }

    passHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
    if err != nil {
        security.SendDatabaseError(c, "No se pudo completar el registro")
        return
    }

    var user models.User
    err = a.db.QueryRow(`
        INSERT INTO users (name, surname, email, password_hash, role_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, name, surname, email, role_id, active, created_at
    `, input.Nombre, input.Apellido, input.Correo, string(passHash), roleID).Scan(
        &user.ID, &user.Name, &user.Surname, &user.Email, &user.RoleID, &user.Active, &user.CreatedAt,
    )
    if err != nil {
        a.logger.Error("failed to create user", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo completar el registro")
        return
    }
    user.RoleName = roleName

    logActivity(a.db, a.logger, user.ID, "registro", "Cuenta creada")

    accessToken, refreshToken, err := a.issueTokens(user.ID)
    if err != nil {
        a.logger.Error("failed to issue tokens", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo completar el registro")
        return
    }

    c.JSON(http.StatusCreated, gin.H{
        "user":         user,
        "accessToken":  accessToken,
        "refreshToken": refreshToken,
    })
}

type LoginInput struct {
    Correo   string `json:"correo" binding:"required"`
    Password string `json:"password" binding:"required"`
}

func (a *AuthController) Login(c *gin.Context) {
    var input LoginInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "correo y password son obligatorios", err.Error())
        return
    }

    var user models.User
    err := a.db.QueryRow(`
        SELECT u.id, u.password_hash, u.name, u.surname, u.email, u.role_id, r.name, u.active
        FROM users u
        JOIN roles r ON r.id = u.role_id
        WHERE u.email = $1
    `, input.Correo).Scan(&user.ID, &user.PasswordHash, &user.Name, &user.Surname,
        &user.Email, &user.RoleID, &user.RoleName, &user.Active)
    if err == sql.ErrNoRows {
        a.rejectCredentials(c)
        return
    }
    if err != nil {
        a.logger.Error("failed to fetch user for login", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo iniciar sesión")
        return
    }

    if !user.Active {
        a.rejectCredentials(c)
        return
    }

    // An expired lock clears itself on the next attempt.
    unlock, err := a.lockout.AttemptAutoUnlock(user.ID)
    if err != nil {
        a.logger.Error("failed to evaluate lock state", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo iniciar sesión")
        return
    }
    if unlock.Indefinite {
        security.SendError(c, http.StatusForbidden, security.CodeAccountLocked, "Cuenta bloqueada",
            "La cuenta está bloqueada. Contacte al administrador", nil)
        return
    }
    if unlock.RemainingMinutes > 0 {
        security.SendError(c, http.StatusForbidden, security.CodeAccountLocked, "Cuenta bloqueada",
            fmt.Sprintf("Cuenta bloqueada temporalmente. Intente de nuevo en %d minutos", unlock.RemainingMinutes),
            gin.H{"remainingTime": unlock.RemainingMinutes})
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
        attempts, locked, lerr := a.lockout.RecordFailedAttempt(user.ID)
        if lerr != nil {
            a.logger.Error("failed to record failed attempt", zap.Error(lerr))
        }
        if locked {
            a.mail.Send(user.Email, "Alerta de seguridad Clinikdent",
                fmt.Sprintf("Su cuenta fue bloqueada tras %d intentos fallidos de inicio de sesión. "+
                    "Si no fue usted, cambie su contraseña.", attempts))
            security.SendError(c, http.StatusForbidden, security.CodeAccountLocked, "Cuenta bloqueada",
                "Cuenta bloqueada por intentos fallidos. Intente más tarde", nil)
            return
        }
        a.rejectCredentials(c)
        return
    }

    if err := a.lockout.RecordSuccess(user.ID); err != nil {
        a.logger.Error("failed to reset lock state", zap.Error(err))
    }

    accessToken, refreshToken, err := a.issueTokens(user.ID)
    if err != nil {
        a.logger.Error("failed to issue tokens", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo iniciar sesión")
        return
    }

    logActivity(a.db, a.logger, user.ID, "login", "Inicio de sesión")

    c.JSON(http.StatusOK, gin.H{
        "id":           user.ID,
        "nombre":       user.Name,
        "apellido":     user.Surname,
        "correo":       user.Email,
        "rol":          user.RoleName,
        "accessToken":  accessToken,
        "refreshToken": refreshToken,
        "tokenType":    "Bearer",
        "expiresIn":    900,
    })
}

func (a *AuthController) rejectCredentials(c *gin.Context) {
    security.SendError(c, http.StatusUnauthorized, security.CodeInvalidCredentials,
        "Credenciales inválidas", "Correo o contraseña incorrectos", nil)
}

// issueTokens signs an access/refresh pair and persists the refresh token.
func (a *AuthController) issueTokens(userID string) (string, string, error) {
    accessToken, err := a.tokens.SignAccessToken(userID)
    if err != nil {
        return "", "", err
    }

    refreshToken, err := a.tokens.SignRefreshToken(userID)
    if err != nil {
        return "", "", err
    }

    expiresAt := time.Now().Add(refreshTokenTTL)
    _, err = a.db.Exec(`
        INSERT INTO refresh_tokens (id, user_id, token, expires_at) VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), userID, refreshToken, expiresAt)
    if err != nil {
        return "", "", err
    }

    return accessToken, refreshToken, nil
}

type RefreshInput struct {
    RefreshToken string `json:"refresh_token" binding:"required"`
}

func (a *AuthController) Refresh(c *gin.Context) {
    var input RefreshInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "refresh_token es obligatorio", err.Error())
        return
    }

    userID, err := a.tokens.VerifyRefreshToken(input.RefreshToken)
    if err != nil {
        c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token inválido"})
        return
    }

    var tokenID string
    err = a.db.QueryRow(`
        SELECT id FROM refresh_tokens
        WHERE user_id = $1 AND token = $2 AND expires_at > CURRENT_TIMESTAMP AND revoked_at IS NULL
    `, userID, input.RefreshToken).Scan(&tokenID)
    if err != nil {
        c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token inválido"})
        return
    }

    // Rotate: revoke the presented token before issuing a new pair.
    _, err = a.db.Exec(`UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP WHERE id = $1`, tokenID)
    if err != nil {
        a.logger.Error("failed to revoke refresh token", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo renovar la sesión")
        return
    }

    accessToken, refreshToken, err := a.issueTokens(userID)
    if err != nil {
        a.logger.Error("failed to issue tokens", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo renovar la sesión")
        return
    }

    c.JSON(http.StatusOK, gin.H{
        "accessToken":  accessToken,
        "refreshToken": refreshToken,
        "tokenType":    "Bearer",
        "expiresIn":    900,
    })
}

type LogoutInput struct {
    RefreshToken string `json:"refresh_token" binding:"required"`
}

func (a *AuthController) Logout(c *gin.Context) {
    var input LogoutInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "refresh_token es obligatorio", err.Error())
        return
    }

    result, err := a.db.Exec(`
        UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP WHERE token = $1 AND revoked_at IS NULL
    `, input.RefreshToken)
    if err != nil {
        security.SendDatabaseError(c, "No se pudo cerrar la sesión")
        return
    }

    rowsAffected, err := result.RowsAffected()
    if err != nil {
        security.SendDatabaseError(c, "No se pudo cerrar la sesión")
        return
    }
    if rowsAffected == 0 {
        c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token inválido"})
        return
    }

    c.JSON(http.StatusOK, gin.H{"msg": "Sesión cerrada"})
}

type ForgotPasswordInput struct {
    Correo string `json:"correo" binding:"required,email"`
}

// ForgotPassword issues a reset token and mails it. The response is the same
// whether or not the address exists.
func (a *AuthController) ForgotPassword(c *gin.Context) {
    var input ForgotPasswordInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "correo es obligatorio", err.Error())
        return
    }

    genericResponse := gin.H{"msg": "Si el correo existe, se enviaron instrucciones de recuperación"}

    var userID string
    err := a.db.QueryRow(`SELECT id FROM users WHERE email = $1 AND active = true`, input.Correo).Scan(&userID)
    if err == sql.ErrNoRows {
        c.JSON(http.StatusOK, genericResponse)
        return
    }
    if err != nil {
        a.logger.Error("failed to look up user for reset", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo procesar la solicitud")
        return
    }

    token, err := security.GenerateSecureToken(8)
    if err != nil {
        a.logger.Error("failed to generate reset token", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo procesar la solicitud")
        return
    }

    expiresAt := time.Now().Add(a.resetTTL)
    _, err = a.db.Exec(`
        INSERT INTO password_reset_tokens (id, user_id, token, expires_at)
        VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), userID, token, expiresAt)
    if err != nil {
        a.logger.Error("failed to store reset token", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo procesar la solicitud")
        return
    }

    a.mail.Send(input.Correo, "Recuperación de contraseña Clinikdent",
        fmt.Sprintf("Su código de recuperación es: %s\nEl código expira en %d minutos.",
            token, int(a.resetTTL.Minutes())))

    c.JSON(http.StatusOK, genericResponse)
}

type ResetPasswordInput struct {
    Token    string `json:"token" binding:"required"`
    Password string `json:"password" binding:"required"`
}

func (a *AuthController) ResetPassword(c *gin.Context) {
    var input ResetPasswordInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "token y password son obligatorios", err.Error())
        return
    }

    if check := security.ValidatePassword(input.Password); !check.IsValid {
        security.SendValidationError(c, "La contraseña no cumple la política", check.Errors)
        return
    }

    var tokenID, userID string
    err := a.db.QueryRow(`
        SELECT id, user_id FROM password_reset_tokens
        WHERE token = $1 AND expires_at > CURRENT_TIMESTAMP
    `, input.Token).Scan(&tokenID, &userID)
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "Token inválido o expirado"})
        return
    }

    passHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
    if err != nil {
        security.SendDatabaseError(c, "No se pudo restablecer la contraseña")
        return
    }

    tx, err := a.db.Begin()
    if err != nil {
        security.SendDatabaseError(c, "No se pudo restablecer la contraseña")
        return
    }
    defer tx.Rollback()

    // A successful reset also clears any lock accumulated by the attacker's
    // guesses.
    _, err = tx.Exec(`
        UPDATE users
        SET password_hash = $1, failed_attempts = 0, is_locked = false, lock_until = NULL
        WHERE id = $2
    `, string(passHash), userID)
    if err != nil {
        security.SendDatabaseError(c, "No se pudo restablecer la contraseña")
        return
    }

    // Consume the token: single use.
    _, err = tx.Exec(`DELETE FROM password_reset_tokens WHERE id = $1`, tokenID)
    if err != nil {
        security.SendDatabaseError(c, "No se pudo restablecer la contraseña")
        return
    }

    if err := tx.Commit(); err != nil {
        security.SendDatabaseError(c, "No se pudo restablecer la contraseña")
        return
    }

    logActivity(a.db, a.logger, userID, "password_reset", "Contraseña restablecida mediante token")

    c.JSON(http.StatusOK, gin.H{"msg": "Contraseña restablecida"})
}

type ChangePasswordInput struct {
    CurrentPassword string `json:"password_actual" binding:"required"`
    NewPassword     string `json:"password_nueva" binding:"required"`
}

func (a *AuthController) ChangePassword(c *gin.Context) {
    userID := c.GetString("user_id")
    var input ChangePasswordInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "password_actual y password_nueva son obligatorios", err.Error())
        return
    }

    if check := security.ValidatePassword(input.NewPassword); !check.IsValid {
        security.SendValidationError(c, "La contraseña no cumple la política", check.Errors)
        return
    }

    var currentHash string
    err := a.db.QueryRow(`SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&currentHash)
    if err != nil {
        security.SendNotFoundError(c, "usuario")
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(input.CurrentPassword)); err != nil {
        c.JSON(http.StatusUnauthorized, gin.H{"error": "La contraseña actual es incorrecta"})
        return
    }

    newHash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
    if err != nil {
        security.SendDatabaseError(c, "No se pudo cambiar la contraseña")
        return
    }

    _, err = a.db.Exec(`UPDATE users SET password_hash = $1 WHERE id = $2`, string(newHash), userID)
    if err != nil {
        security.SendDatabaseError(c, "No se pudo cambiar la contraseña")
        return
    }

    logActivity(a.db, a.logger, userID, "password_cambiada", "Contraseña actualizada")

    c.JSON(http.StatusOK, gin.H{"msg": "Contraseña actualizada"})
}

func (a *AuthController) GetProfile(c *gin.Context) {
    userID := c.GetString("user_id")

    var user models.User
    err := a.db.QueryRow(`
        SELECT u.id, u.name, u.surname, u.email, u.role_id, r.name, u.active, u.created_at
        FROM users u
        JOIN roles r ON r.id = u.role_id
        WHERE u.id = $1
    `, userID).Scan(&user.ID, &user.Name, &user.Surname, &user.Email,
        &user.RoleID, &user.RoleName, &user.Active, &user.CreatedAt)
    if err != nil {
        security.SendNotFoundError(c, "usuario")
        return
    }

    c.JSON(http.StatusOK, user)
}

package security

import (
    "bytes"
    "database/sql"
    "encoding/json"
    "io"
    "net/http"
    "strings"

    "github.com/gin-gonic/gin"
)

// Database is the query surface the middleware needs, satisfied by *sql.DB.
type Database interface {
    QueryRow(query string, args ...interface{}) *sql.Row
    Query(query string, args ...interface{}) (*sql.Rows, error)
}

// AuthMiddleware validates the bearer access token and confirms the user is
// still active before letting the request through. The verified user id is
// stored on the context under "user_id".
func AuthMiddleware(tm *TokenManager, db Database) gin.HandlerFunc {
    return func(c *gin.Context) {
        tokenStr := c.GetHeader("Authorization")
        if tokenStr == "" {
            SendError(c, http.StatusUnauthorized, CodeMissingToken, "Authentication required",
                "Please provide a valid authorization token in the request header", nil)
            c.Abort()
            return
        }

        tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")

        userID, err := tm.VerifyAccessToken(tokenStr)
        if err != nil {
            SendError(c, http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token",
                "The provided token is invalid, expired, or malformed. Please login again to get a new token", nil)
            c.Abort()
            return
        }

        var exists bool
        err = db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id=$1 AND active=true)`, userID).Scan(&exists)
        if err != nil {
            SendError(c, http.StatusInternalServerError, CodeAuthVerificationError, "Authentication verification failed",
                "Unable to verify user status. Please try again later", nil)
            c.Abort()
            return
        }
        if !exists {
            SendError(c, http.StatusUnauthorized, CodeUserNotFoundOrInactive, "User account not found or inactive",
                "Your account is not found or has been deactivated. Please contact support", nil)
            c.Abort()
            return
        }

        c.Set("user_id", userID)
        c.Next()
    }
}

// RequireAdmin gates admin-only routes on the caller-supplied role claim.
// The claim is read from the x-user-role header, then the user-role header,
// then the "rol" body field, then the "rol" query parameter. Only
// "administrador" and "admin" (case-insensitive) pass.
//
// KNOWN WEAKNESS: the role value is asserted by the caller and carries no
// signature, so this gate is advisory. Identity-bearing routes additionally
// run behind AuthMiddleware, which does verify a signed token.
func RequireAdmin() gin.HandlerFunc {
    return func(c *gin.Context) {
        role := CallerRole(c)
        if role != "administrador" && role != "admin" {
            SendError(c, http.StatusForbidden, CodeInsufficientPermissions, "Acceso restringido",
                "Esta operación requiere rol de administrador", nil)
            c.Abort()
            return
        }
        c.Next()
    }
}

// CallerRole extracts the caller's asserted role, normalized to lowercase.
// Precedence: x-user-role header, user-role header, body "rol", query "rol".
func CallerRole(c *gin.Context) string {
    role := c.GetHeader("x-user-role")
    if role == "" {
        role = c.GetHeader("user-role")
    }
    if role == "" {
        role = roleFromBody(c)
    }
    if role == "" {
        role = c.Query("rol")
    }
    return strings.ToLower(strings.TrimSpace(role))
}

// roleFromBody peeks at a JSON body for a "rol" field. The body is restored
// so the downstream handler can still bind it.
func roleFromBody(c *gin.Context) string {
    if c.Request.Body == nil || c.Request.Method == http.MethodGet {
        return ""
    }

    raw, err := io.ReadAll(c.Request.Body)
    if err != nil {
        return ""
    }
    c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))

    var payload struct {
        Rol string `json:"rol"`
    }
    if err := json.Unmarshal(raw, &payload); err != nil {
        return ""
    }
    return payload.Rol
}

func CORSMiddleware() gin.HandlerFunc {
    return func(c *gin.Context) {
        origin := c.Request.Header.Get("Origin")

        allowOrigin := "*"
        if origin != "" {
            allowOrigin = origin
        }

        c.Header("Access-Control-Allow-Origin", allowOrigin)
        c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
        c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin, x-user-role, user-role")
        c.Header("Access-Control-Allow-Credentials", "true")
        c.Header("Access-Control-Max-Age", "86400")

        if c.Request.Method == http.MethodOptions {
            c.AbortWithStatus(204)
            return
        }

        c.Next()
    }
}

package controllers

import (
    "database/sql"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/gin-gonic/gin"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/maria162003/clinikdent-v2-0-sub004/utils"
)

func setupUserTest(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gin.Engine) {
    gin.SetMode(gin.TestMode)

    db, mock, err := sqlmock.New()
    require.NoError(t, err)

    lockout := utils.NewLockoutPolicy(db, zap.NewNop(), 3, 15)
    ctl := NewUserController(db, zap.NewNop(), lockout)

    r := gin.New()
    r.GET("/usuarios/:id", ctl.GetUser)
    r.PUT("/usuarios/:id", ctl.UpdateUser)
    r.DELETE("/usuarios/:id", ctl.DeactivateUser)
    r.POST("/usuarios/:id/desbloquear", ctl.UnlockUser)
    return db, mock, r
}

func TestGetUser_NotFound(t *testing.T) {
    db, mock, r := setupUserTest(t)
    defer db.Close()

    mock.ExpectQuery("SELECT u.id, u.name").
        WithArgs("ghost").
        WillReturnError(sql.ErrNoRows)

    req := httptest.NewRequest(http.MethodGet, "/usuarios/ghost", nil)
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)

    assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUser_DynamicFields(t *testing.T) {
    db, mock, r := setupUserTest(t)
    defer db.Close()

    mock.ExpectExec("UPDATE users SET").
        WithArgs("Laura", 2, "user-1").
        WillReturnResult(sqlmock.NewResult(0, 1))

    req := httptest.NewRequest(http.MethodPut, "/usuarios/user-1",
        jsonBody(`{"nombre":"Laura","rol_id":2}`))
    req.Header.Set("Content-Type", "application/json")
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)

    assert.Equal(t, http.StatusOK, w.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUser_NoFields(t *testing.T) {
    db, _, r := setupUserTest(t)
    defer db.Close()

    req := httptest.NewRequest(http.MethodPut, "/usuarios/user-1", jsonBody(`{}`))
    req.Header.Set("Content-Type", "application/json")
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)

    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateUser_SoftDelete(t *testing.T) {
    db, mock, r := setupUserTest(t)
    defer db.Close()

    mock.ExpectExec("UPDATE users SET active = false").
        WithArgs("user-1").
        WillReturnResult(sqlmock.NewResult(0, 1))

    req := httptest.NewRequest(http.MethodDelete, "/usuarios/user-1", nil)
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)

    assert.Equal(t, http.StatusOK, w.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockUser_Forced(t *testing.T) {
    db, mock, r := setupUserTest(t)
    defer db.Close()

    mock.ExpectExec("UPDATE users").
        WithArgs("user-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO activity_log").
        WillReturnResult(sqlmock.NewResult(1, 1))

    w := postJSON(r, "/usuarios/user-1/desbloquear", `{"forzar":true}`, nil)

    assert.Equal(t, http.StatusOK, w.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockUser_PendingLock(t *testing.T) {
    db, mock, r := setupUserTest(t)
    defer db.Close()

    until := time.Now().Add(5 * time.Minute)
    mock.ExpectQuery("SELECT is_locked, lock_until").
        WithArgs("user-1").
        WillReturnRows(sqlmock.NewRows([]string{"is_locked", "lock_until"}).AddRow(true, until))

    w := postJSON(r, "/usuarios/user-1/desbloquear", `{}`, nil)

    assert.Equal(t, http.StatusConflict, w.Code)
    assert.Contains(t, w.Body.String(), `"remainingTime":5`)
}

func TestUnlockUser_NotLocked(t *testing.T) {
    db, mock, r := setupUserTest(t)
    defer db.Close()

    mock.ExpectQuery("SELECT is_locked, lock_until").
        WithArgs("user-1").
        WillReturnRows(sqlmock.NewRows([]string{"is_locked", "lock_until"}).AddRow(false, nil))

    w := postJSON(r, "/usuarios/user-1/desbloquear", `{}`, nil)

    assert.Equal(t, http.StatusOK, w.Code)
}

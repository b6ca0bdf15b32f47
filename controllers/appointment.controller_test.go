package controllers

import (
    "bytes"
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
)

func setupAppointmentTest(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gin.Engine) {
    gin.SetMode(gin.TestMode)

    db, mock, err := sqlmock.New()
    require.NoError(t, err)

    ctl := NewAppointmentController(db, zap.NewNop(), time.UTC)

    r := gin.New()
    r.POST("/citas", ctl.CreateAppointment)
    r.GET("/citas/:id", ctl.GetAppointment)
    r.POST("/citas/:id/reschedule", ctl.RescheduleAppointment)
    r.POST("/citas/:id/cancel", ctl.CancelAppointment)
    return db, mock, r
}

func jsonBody(s string) *bytes.Buffer {
    return bytes.NewBufferString(s)
}

func postJSON(r *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
    req.Header.Set("Content-Type", "application/json")
    for k, v := range headers {
        req.Header.Set(k, v)
    }
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)
    return w
}

func TestCreateAppointment_MissingFields(t *testing.T) {
    db, _, r := setupAppointmentTest(t)
    defer db.Close()

    w := postJSON(r, "/citas", `{"paciente_id":"p1"}`, nil)

    assert.Equal(t, http.StatusBadRequest, w.Code)
    assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestCreateAppointment_SlotConflict(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    rows := sqlmock.NewRows([]string{"count"}).AddRow(1)
    mock.ExpectQuery("SELECT COUNT").
        WithArgs("doc-1", "2030-05-10", "14:00").
        WillReturnRows(rows)

    w := postJSON(r, "/citas",
        `{"paciente_id":"pat-1","odontologo_id":"doc-1","fecha":"2030-05-10","hora":"14:00"}`, nil)

    assert.Equal(t, http.StatusConflict, w.Code)
    assert.Contains(t, w.Body.String(), "SLOT_CONFLICT")
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointment_Success(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    mock.ExpectQuery("SELECT COUNT").
        WithArgs("doc-1", "2030-05-10", "14:00").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

    inserted := sqlmock.NewRows([]string{
        "id", "patient_id", "doctor_id", "fecha", "hora", "status", "reason", "notes", "created_at",
    }).AddRow("appt-1", "pat-1", "doc-1", "2030-05-10", "14:00", "pending", "limpieza", nil, time.Now())
    mock.ExpectQuery("INSERT INTO appointments").
        WithArgs("pat-1", "doc-1", "2030-05-10", "14:00", "pending", "limpieza", nil).
        WillReturnRows(inserted)

    mock.ExpectExec("INSERT INTO activity_log").
        WillReturnResult(sqlmock.NewResult(1, 1))

    w := postJSON(r, "/citas",
        `{"paciente_id":"pat-1","odontologo_id":"doc-1","fecha":"2030-05-10","hora":"14:00","motivo":"limpieza"}`, nil)

    require.Equal(t, http.StatusCreated, w.Code)
    assert.Contains(t, w.Body.String(), `"estado":"pending"`)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointment_StaffBookingIsConfirmed(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    mock.ExpectQuery("SELECT COUNT").
        WithArgs("doc-1", "2030-05-10", "09:00").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

    inserted := sqlmock.NewRows([]string{
        "id", "patient_id", "doctor_id", "fecha", "hora", "status", "reason", "notes", "created_at",
    }).AddRow("appt-2", "pat-1", "doc-1", "2030-05-10", "09:00", "confirmed", nil, nil, time.Now())
    mock.ExpectQuery("INSERT INTO appointments").
        WithArgs("pat-1", "doc-1", "2030-05-10", "09:00", "confirmed", nil, nil).
        WillReturnRows(inserted)

    mock.ExpectExec("INSERT INTO activity_log").
        WillReturnResult(sqlmock.NewResult(1, 1))

    w := postJSON(r, "/citas",
        `{"paciente_id":"pat-1","odontologo_id":"doc-1","fecha":"2030-05-10","hora":"09:00"}`,
        map[string]string{"x-user-role": "administrador"})

    require.Equal(t, http.StatusCreated, w.Code)
    assert.Contains(t, w.Body.String(), `"estado":"confirmed"`)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointment_RejectsPastSlot(t *testing.T) {
    db, _, r := setupAppointmentTest(t)
    defer db.Close()

    w := postJSON(r, "/citas",
        `{"paciente_id":"pat-1","odontologo_id":"doc-1","fecha":"2001-01-01","hora":"09:00"}`, nil)

    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRescheduleAppointment_Conflict(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    mock.ExpectQuery("SELECT patient_id, doctor_id").
        WithArgs("appt-1").
        WillReturnRows(sqlmock.NewRows([]string{"patient_id", "doctor_id"}).AddRow("pat-1", "doc-1"))

    // Availability is checked excluding the appointment being moved.
    mock.ExpectQuery("SELECT COUNT").
        WithArgs("doc-1", "2030-06-01", "10:00", "appt-1").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

    w := postJSON(r, "/citas/appt-1/reschedule", `{"fecha":"2030-06-01","hora":"10:00"}`, nil)

    assert.Equal(t, http.StatusConflict, w.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleAppointment_NotFound(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    mock.ExpectQuery("SELECT patient_id, doctor_id").
        WithArgs("ghost").
        WillReturnError(sql.ErrNoRows)

    w := postJSON(r, "/citas/ghost/reschedule", `{"fecha":"2030-06-01","hora":"10:00"}`, nil)

    assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRescheduleAppointment_Success(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    mock.ExpectQuery("SELECT patient_id, doctor_id").
        WithArgs("appt-1").
        WillReturnRows(sqlmock.NewRows([]string{"patient_id", "doctor_id"}).AddRow("pat-1", "doc-1"))
    mock.ExpectQuery("SELECT COUNT").
        WithArgs("doc-1", "2030-06-01", "10:00", "appt-1").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
    mock.ExpectExec("UPDATE appointments SET fecha").
        WithArgs("2030-06-01", "10:00", "appt-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO activity_log").
        WillReturnResult(sqlmock.NewResult(1, 1))

    w := postJSON(r, "/citas/appt-1/reschedule", `{"fecha":"2030-06-01","hora":"10:00"}`, nil)

    assert.Equal(t, http.StatusOK, w.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAppointment_Idempotent(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    // Cancelling twice succeeds both times; the row stays cancelled.
    mock.ExpectExec("UPDATE appointments SET status").
        WithArgs("appt-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("UPDATE appointments SET status").
        WithArgs("appt-1").
        WillReturnResult(sqlmock.NewResult(0, 1))

    w1 := postJSON(r, "/citas/appt-1/cancel", "", nil)
    w2 := postJSON(r, "/citas/appt-1/cancel", "", nil)

    assert.Equal(t, http.StatusOK, w1.Code)
    assert.Equal(t, http.StatusOK, w2.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAppointment_NotFound(t *testing.T) {
    db, mock, r := setupAppointmentTest(t)
    defer db.Close()

    mock.ExpectExec("UPDATE appointments SET status").
        WithArgs("ghost").
        WillReturnResult(sqlmock.NewResult(0, 0))

    w := postJSON(r, "/citas/ghost/cancel", "", nil)

    assert.Equal(t, http.StatusNotFound, w.Code)
}

package controllers

import (
    "database/sql"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/lib/pq"
    "go.uber.org/zap"

    "github.com/maria162003/clinikdent-v2-0-sub004/models"
    "github.com/maria162003/clinikdent-v2-0-sub004/security"
    "github.com/maria162003/clinikdent-v2-0-sub004/utils"
)

// uniqueViolation is the Postgres error code raised when the partial unique
// index on (doctor_id, fecha, hora) catches a concurrent double booking.
const uniqueViolation = "23505"

type AppointmentController struct {
    db     *sql.DB
    logger *zap.Logger
    loc    *time.Location

    // clinic working hours used for the slot listing
    openHour    int
    closeHour   int
    slotMinutes int
}

func NewAppointmentController(db *sql.DB, logger *zap.Logger, loc *time.Location) *AppointmentController {
    return &AppointmentController{
        db:          db,
        logger:      logger,
        loc:         loc,
        openHour:    8,
        closeHour:   18,
        slotMinutes: 60,
    }
}

type CreateAppointmentInput struct {
    PacienteID   string  `json:"paciente_id" binding:"required"`
    OdontologoID string  `json:"odontologo_id" binding:"required"`
    Fecha        string  `json:"fecha" binding:"required"`
    Hora         string  `json:"hora" binding:"required"`
    Motivo       *string `json:"motivo"`
    Notas        *string `json:"notas"`
    Rol          string  `json:"rol"`
}

type RescheduleAppointmentInput struct {
    Fecha string `json:"fecha" binding:"required"`
    Hora  string `json:"hora" binding:"required"`
}

type UpdateStatusInput struct {
    Estado string `json:"estado" binding:"required,oneof=pending confirmed completed cancelled"`
}

func (ap *AppointmentController) CreateAppointment(c *gin.Context) {
    var input CreateAppointmentInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "paciente_id, odontologo_id, fecha y hora son obligatorios", err.Error())
        return
    }

    slot, err := utils.ParseSlot(input.Fecha, input.Hora, ap.loc)
    if err != nil {
        security.SendValidationError(c, err.Error(), nil)
        return
    }
    if slot.Before(time.Now().In(ap.loc)) {
        security.SendValidationError(c, "La fecha de la cita ya pasó", nil)
        return
    }

    available, err := utils.IsSlotAvailable(ap.db, input.OdontologoID, input.Fecha, input.Hora, nil)
    if err != nil {
        ap.logger.Error("failed to check slot availability", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo verificar la disponibilidad")
        return
    }
    if !available {
        security.SendSlotConflictError(c)
        return
    }

    // Appointments booked by staff skip the pending stage. The bound body
    // already consumed the request stream, so the body role comes from the
    // input instead of CallerRole.
    status := models.StatusPending
    role := security.CallerRole(c)
    if role == "" {
        role = strings.ToLower(input.Rol)
    }
    if role == "administrador" || role == "admin" {
        status = models.StatusConfirmed
    }

    var appointment models.Appointment
    err = ap.db.QueryRow(`
        INSERT INTO appointments (patient_id, doctor_id, fecha, hora, status, reason, notes)
        VALUES ($1, $2, $3, $4::time, $5, $6, $7)
        RETURNING id, patient_id, doctor_id, to_char(fecha, 'YYYY-MM-DD'), to_char(hora, 'HH24:MI'),
                  status, reason, notes, created_at
    `, input.PacienteID, input.OdontologoID, input.Fecha, input.Hora, status, input.Motivo, input.Notas).Scan(
        &appointment.ID, &appointment.PatientID, &appointment.DoctorID, &appointment.Date,
        &appointment.Time, &appointment.Status, &appointment.Reason, &appointment.Notes,
        &appointment.CreatedAt,
    )
    if err != nil {
        if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
            security.SendSlotConflictError(c)
            return
        }
        ap.logger.Error("failed to create appointment", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo crear la cita")
        return
    }

    logActivity(ap.db, ap.logger, input.PacienteID, "cita_creada",
        fmt.Sprintf("Cita %s con odontólogo %s el %s %s", appointment.ID, input.OdontologoID, input.Fecha, input.Hora))

    c.JSON(http.StatusCreated, appointment)
}

func (ap *AppointmentController) GetAppointments(c *gin.Context) {
    pacienteID := c.Query("paciente_id")
    odontologoID := c.Query("odontologo_id")
    estado := c.Query("estado")
    fecha := c.Query("fecha")
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
        SELECT a.id, a.patient_id, a.doctor_id, to_char(a.fecha, 'YYYY-MM-DD'), to_char(a.hora, 'HH24:MI'),
               a.status, a.reason, a.notes, a.created_at,
               p.name || ' ' || p.surname AS patient_name,
               d.name || ' ' || d.surname AS doctor_name
        FROM appointments a
        JOIN users p ON p.id = a.patient_id
        JOIN users d ON d.id = a.doctor_id
        WHERE 1=1
    `
    args := []interface{}{}
    argIndex := 1

    if pacienteID != "" {
        query += fmt.Sprintf(" AND a.patient_id = $%d", argIndex)
        args = append(args, pacienteID)
        argIndex++
    }
    if odontologoID != "" {
        query += fmt.Sprintf(" AND a.doctor_id = $%d", argIndex)
        args = append(args, odontologoID)
        argIndex++
    }
    if estado != "" {
        query += fmt.Sprintf(" AND a.status = $%d", argIndex)
        args = append(args, estado)
        argIndex++
    }
    if fecha != "" {
        query += fmt.Sprintf(" AND a.fecha = $%d", argIndex)
        args = append(args, fecha)
        argIndex++
    }

    query += fmt.Sprintf(" ORDER BY a.fecha DESC, a.hora DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
    args = append(args, limit, offset)

    rows, err := ap.db.Query(query, args...)
    if err != nil {
        ap.logger.Error("failed to list appointments", zap.Error(err))
        security.SendDatabaseError(c, "No se pudieron consultar las citas")
        return
    }
    defer rows.Close()

    appointments := []models.AppointmentWithNames{}
    for rows.Next() {
        var a models.AppointmentWithNames
        err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time,
            &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.PatientName, &a.DoctorName)
        if err != nil {
            ap.logger.Error("failed to scan appointment row", zap.Error(err))
            security.SendDatabaseError(c, "No se pudieron consultar las citas")
            return
        }
        appointments = append(appointments, a)
    }

    c.JSON(http.StatusOK, appointments)
}

func (ap *AppointmentController) GetAppointment(c *gin.Context) {
    id := c.Param("id")

    var a models.AppointmentWithNames
    err := ap.db.QueryRow(`
        SELECT a.id, a.patient_id, a.doctor_id, to_char(a.fecha, 'YYYY-MM-DD'), to_char(a.hora, 'HH24:MI'),
               a.status, a.reason, a.notes, a.created_at,
               p.name || ' ' || p.surname AS patient_name,
               d.name || ' ' || d.surname AS doctor_name
        FROM appointments a
        JOIN users p ON p.id = a.patient_id
        JOIN users d ON d.id = a.doctor_id
        WHERE a.id = $1
    `, id).Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time,
        &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.PatientName, &a.DoctorName)
    if err == sql.ErrNoRows {
        security.SendNotFoundError(c, "cita")
        return
    }
    if err != nil {
        ap.logger.Error("failed to get appointment", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo consultar la cita")
        return
    }

    c.JSON(http.StatusOK, a)
}

// RescheduleAppointment moves an appointment to a new slot. The status is
// left untouched.
func (ap *AppointmentController) RescheduleAppointment(c *gin.Context) {
    id := c.Param("id")
    var input RescheduleAppointmentInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "fecha y hora son obligatorios", err.Error())
        return
    }

    if _, err := utils.ParseSlot(input.Fecha, input.Hora, ap.loc); err != nil {
        security.SendValidationError(c, err.Error(), nil)
        return
    }

    var patientID, doctorID string
    err := ap.db.QueryRow(`
        SELECT patient_id, doctor_id FROM appointments WHERE id = $1
    `, id).Scan(&patientID, &doctorID)
    if err == sql.ErrNoRows {
        security.SendNotFoundError(c, "cita")
        return
    }
    if err != nil {
        ap.logger.Error("failed to load appointment", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo consultar la cita")
        return
    }

    available, err := utils.IsSlotAvailable(ap.db, doctorID, input.Fecha, input.Hora, &id)
    if err != nil {
        ap.logger.Error("failed to check slot availability", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo verificar la disponibilidad")
        return
    }
    if !available {
        security.SendSlotConflictError(c)
        return
    }

    _, err = ap.db.Exec(`
        UPDATE appointments SET fecha = $1, hora = $2::time WHERE id = $3
    `, input.Fecha, input.Hora, id)
    if err != nil {
        if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
            security.SendSlotConflictError(c)
            return
        }
        ap.logger.Error("failed to reschedule appointment", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo reprogramar la cita")
        return
    }

    logActivity(ap.db, ap.logger, patientID, "cita_reprogramada",
        fmt.Sprintf("Cita %s movida a %s %s", id, input.Fecha, input.Hora))

    c.JSON(http.StatusOK, gin.H{"msg": "Cita reprogramada"})
}

// CancelAppointment is idempotent: cancelling an already-cancelled
// appointment succeeds without effect.
func (ap *AppointmentController) CancelAppointment(c *gin.Context) {
    id := c.Param("id")

    result, err := ap.db.Exec(`
        UPDATE appointments SET status = 'cancelled' WHERE id = $1
    `, id)
    if err != nil {
        ap.logger.Error("failed to cancel appointment", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo cancelar la cita")
        return
    }

    rowsAffected, err := result.RowsAffected()
    if err != nil {
        security.SendDatabaseError(c, "No se pudo cancelar la cita")
        return
    }
    if rowsAffected == 0 {
        security.SendNotFoundError(c, "cita")
        return
    }

    c.JSON(http.StatusOK, gin.H{"msg": "Cita cancelada"})
}

func (ap *AppointmentController) UpdateAppointmentStatus(c *gin.Context) {
    id := c.Param("id")
    var input UpdateStatusInput
    if err := c.ShouldBindJSON(&input); err != nil {
        security.SendValidationError(c, "estado inválido", err.Error())
        return
    }

    result, err := ap.db.Exec(`
        UPDATE appointments SET status = $1 WHERE id = $2
    `, input.Estado, id)
    if err != nil {
        ap.logger.Error("failed to update appointment status", zap.Error(err))
        security.SendDatabaseError(c, "No se pudo actualizar la cita")
        return
    }

    rowsAffected, err := result.RowsAffected()
    if err != nil {
        security.SendDatabaseError(c, "No se pudo actualizar la cita")
        return
    }
    if rowsAffected == 0 {
        security.SendNotFoundError(c, "cita")
        return
    }

    c.JSON(http.StatusOK, gin.H{"msg": "Estado actualizado"})
}

// GetAvailableSlots lists the working-day slots of a doctor for a date with
// their availability.
func (ap *AppointmentController) GetAvailableSlots(c *gin.Context) {
    odontologoID := c.Query("odontologo_id")
    fecha := c.Query("fecha")

    if odontologoID == "" || fecha == "" {
        security.SendValidationError(c, "odontologo_id y fecha son obligatorios", nil)
        return
    }
    if _, err := time.Parse("2006-01-02", fecha); err != nil {
        security.SendValidationError(c, "fecha inválida: use YYYY-MM-DD", nil)
        return
    }

    slots, err := utils.GenerateDaySlots(ap.db, odontologoID, fecha, ap.openHour, ap.closeHour, ap.slotMinutes)
    if err != nil {
        ap.logger.Error("failed to generate slots", zap.Error(err))
        security.SendDatabaseError(c, "No se pudieron consultar los horarios")
        return
    }

    c.JSON(http.StatusOK, slots)
}

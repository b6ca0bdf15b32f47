package models

import (
    "time"
)

// Appointment statuses. Cancelled appointments stay in the table; nothing is
// hard-deleted.
const (
    StatusPending   = "pending"
    StatusConfirmed = "confirmed"
    StatusCompleted = "completed"
    StatusCancelled = "cancelled"
)

// ActiveStatuses are the statuses that occupy a doctor's slot.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusCompleted}

type Appointment struct {
    ID        string    `json:"id" db:"id"`
    PatientID string    `json:"paciente_id" db:"patient_id"`
    DoctorID  string    `json:"odontologo_id" db:"doctor_id"`
    Date      string    `json:"fecha" db:"fecha"`
    Time      string    `json:"hora" db:"hora"`
    Status    string    `json:"estado" db:"status"`
    Reason    *string   `json:"motivo" db:"reason"`
    Notes     *string   `json:"notas" db:"notes"`
    CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AppointmentWithNames carries the joined patient and doctor names for list
// responses.
type AppointmentWithNames struct {
    Appointment
    PatientName string `json:"paciente"`
    DoctorName  string `json:"odontologo"`
}

type TimeSlot struct {
    Time        string `json:"hora"`
    IsAvailable bool   `json:"disponible"`
}

func IsValidStatus(s string) bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
        return true
    }
    return false
}

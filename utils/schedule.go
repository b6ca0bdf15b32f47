package utils

import (
    "database/sql"
    "fmt"
    "time"

    "github.com/maria162003/clinikdent-v2-0-sub004/models"
)

const (
    dateLayout = "2006-01-02"
    timeLayout = "15:04"
)

// ParseSlot validates a fecha/hora pair and builds the canonical slot
// instant in the clinic's location. The value is constructed from numeric
// components; date and time strings are never concatenated.
func ParseSlot(fecha, hora string, loc *time.Location) (time.Time, error) {
    d, err := time.Parse(dateLayout, fecha)
    if err != nil {
        return time.Time{}, fmt.Errorf("invalid fecha %q: use YYYY-MM-DD", fecha)
    }

    t, err := time.Parse(timeLayout, hora)
    if err != nil {
        if t, err = time.Parse("15:04:05", hora); err != nil {
            return time.Time{}, fmt.Errorf("invalid hora %q: use HH:MM", hora)
        }
    }

    return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// IsSlotAvailable reports whether the doctor has no appointment occupying
// the given date and time. Cancelled appointments do not block a slot.
// excludeID skips one appointment, used when rescheduling against itself.
func IsSlotAvailable(db *sql.DB, doctorID, fecha, hora string, excludeID *string) (bool, error) {
    query := `
        SELECT COUNT(*) FROM appointments
        WHERE doctor_id = $1
        AND fecha = $2
        AND hora = $3::time
        AND status IN ('pending', 'confirmed', 'completed')
    `
    args := []interface{}{doctorID, fecha, hora}

    if excludeID != nil {
        query += " AND id <> $4"
        args = append(args, *excludeID)
    }

    var count int
    if err := db.QueryRow(query, args...).Scan(&count); err != nil {
        return false, err
    }
    return count == 0, nil
}

// GenerateDaySlots lists every slot of a doctor's working day with its
// availability. Working hours and slot length come from the caller's
// configuration.
func GenerateDaySlots(db *sql.DB, doctorID, fecha string, openHour, closeHour, slotMinutes int) ([]models.TimeSlot, error) {
    rows, err := db.Query(`
        SELECT hora::text FROM appointments
        WHERE doctor_id = $1
        AND fecha = $2
        AND status IN ('pending', 'confirmed', 'completed')
    `, doctorID, fecha)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    booked := map[string]bool{}
    for rows.Next() {
        var hora string
        if err := rows.Scan(&hora); err != nil {
            return nil, err
        }
        if len(hora) >= 5 {
            booked[hora[:5]] = true
        }
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }

    if slotMinutes <= 0 {
        slotMinutes = 60
    }

    var slots []models.TimeSlot
    for minutes := openHour * 60; minutes < closeHour*60; minutes += slotMinutes {
        hora := fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
        slots = append(slots, models.TimeSlot{
            Time:        hora,
            IsAvailable: !booked[hora],
        })
    }
    return slots, nil
}

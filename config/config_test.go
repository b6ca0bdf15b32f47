package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
    cfg := Load()

    assert.Equal(t, "8081", cfg.Port)
    assert.Equal(t, "localhost", cfg.DBHost)
    assert.Equal(t, "disable", cfg.DBSSLMode)
    assert.Equal(t, 3, cfg.MaxLoginAttempts)
    assert.Equal(t, 15, cfg.LockDurationMinutes)
    assert.Equal(t, "UTC", cfg.ClinicTimezone)
    assert.Equal(t, 60*time.Minute, cfg.ResetTokenTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
    t.Setenv("PORT", "9090")
    t.Setenv("MAX_LOGIN_ATTEMPTS", "5")
    t.Setenv("LOCK_DURATION_MINUTES", "30")
    t.Setenv("CLINIC_TZ", "America/Bogota")

    cfg := Load()

    assert.Equal(t, "9090", cfg.Port)
    assert.Equal(t, 5, cfg.MaxLoginAttempts)
    assert.Equal(t, 30, cfg.LockDurationMinutes)
    assert.Equal(t, "America/Bogota", cfg.ClinicTimezone)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
    t.Setenv("MAX_LOGIN_ATTEMPTS", "muchos")
    t.Setenv("LOCK_DURATION_MINUTES", "-1")

    cfg := Load()

    assert.Equal(t, 3, cfg.MaxLoginAttempts)
    assert.Equal(t, 15, cfg.LockDurationMinutes)
}

func TestClinicLocation(t *testing.T) {
    cfg := Config{ClinicTimezone: "America/Bogota"}
    assert.Equal(t, "America/Bogota", cfg.ClinicLocation().String())

    cfg.ClinicTimezone = "No/Existe"
    assert.Equal(t, time.UTC, cfg.ClinicLocation())
}

package config

import (
    "os"
    "strconv"
    "time"

    "github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
    Port string

    DBHost     string
    DBPort     string
    DBUser     string
    DBPassword string
    DBName     string
    DBSSLMode  string

    JWTAccessSecret  string
    JWTRefreshSecret string

    MaxLoginAttempts    int
    LockDurationMinutes int

    // IANA name of the clinic's timezone. Appointment date/time values are
    // interpreted in this location.
    ClinicTimezone string

    ResetTokenTTL time.Duration

    SMTPHost string
    SMTPPort string
    SMTPUser string
    SMTPPass string
    SMTPFrom string
}

// Load reads configuration from the environment. A .env file is picked up
// when present so local runs don't need exported variables.
func Load() Config {
    _ = godotenv.Load()

    return Config{
        Port: getEnv("PORT", "8081"),

        DBHost:     getEnv("DB_HOST", "localhost"),
        DBPort:     getEnv("DB_PORT", "5432"),
        DBUser:     getEnv("DB_USER", "postgres"),
        DBPassword: getEnv("DB_PASSWORD", ""),
        DBName:     getEnv("DB_NAME", "clinikdent"),
        DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

        JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
        JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),

        MaxLoginAttempts:    getEnvInt("MAX_LOGIN_ATTEMPTS", 3),
        LockDurationMinutes: getEnvInt("LOCK_DURATION_MINUTES", 15),

        ClinicTimezone: getEnv("CLINIC_TZ", "UTC"),

        ResetTokenTTL: time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 60)) * time.Minute,

        SMTPHost: getEnv("SMTP_HOST", ""),
        SMTPPort: getEnv("SMTP_PORT", "587"),
        SMTPUser: getEnv("SMTP_USER", ""),
        SMTPPass: getEnv("SMTP_PASSWORD", ""),
        SMTPFrom: getEnv("SMTP_FROM", "no-reply@clinikdent.local"),
    }
}

// ClinicLocation resolves the configured timezone, falling back to UTC when
// the name is unknown.
func (c Config) ClinicLocation() *time.Location {
    loc, err := time.LoadLocation(c.ClinicTimezone)
    if err != nil {
        return time.UTC
    }
    return loc
}

func getEnv(key, fallback string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return fallback
}

func getEnvInt(key string, fallback int) int {
    v := os.Getenv(key)
    if v == "" {
        return fallback
    }
    n, err := strconv.Atoi(v)
    if err != nil || n <= 0 {
        return fallback
    }
    return n
}

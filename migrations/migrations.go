package migrations

import (
    "database/sql"
    "fmt"

    "go.uber.org/zap"
)

// Migration is a single versioned schema change. Statements must be
// idempotent-safe to re-run only through the version bookkeeping below.
type Migration struct {
    Version int
    Name    string
    SQL     string
}

// All returns the ordered migration list.
func All() []Migration {
    return []Migration{
        {
            Version: 1,
            Name:    "create_roles_and_users",
            SQL: `
                CREATE EXTENSION IF NOT EXISTS pgcrypto;

                CREATE TABLE IF NOT EXISTS roles (
                    id SERIAL PRIMARY KEY,
                    name VARCHAR(50) UNIQUE NOT NULL
                );

                INSERT INTO roles (name) VALUES ('administrador'), ('odontologo'), ('paciente')
                ON CONFLICT (name) DO NOTHING;

                CREATE TABLE IF NOT EXISTS users (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name VARCHAR(100) NOT NULL,
                    surname VARCHAR(100) NOT NULL,
                    email VARCHAR(255) UNIQUE NOT NULL,
                    password_hash TEXT NOT NULL,
                    role_id INTEGER NOT NULL REFERENCES roles(id),
                    active BOOLEAN NOT NULL DEFAULT true,
                    failed_attempts INTEGER NOT NULL DEFAULT 0,
                    is_locked BOOLEAN NOT NULL DEFAULT false,
                    lock_until TIMESTAMPTZ,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
                );
            `,
        },
        {
            Version: 2,
            Name:    "create_appointments",
            SQL: `
                CREATE TABLE IF NOT EXISTS appointments (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    patient_id UUID NOT NULL REFERENCES users(id),
                    doctor_id UUID NOT NULL REFERENCES users(id),
                    fecha DATE NOT NULL,
                    hora TIME NOT NULL,
                    status VARCHAR(20) NOT NULL DEFAULT 'pending'
                        CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled')),
                    reason TEXT,
                    notes TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
                );

                CREATE INDEX IF NOT EXISTS idx_appointments_doctor_fecha
                    ON appointments (doctor_id, fecha);
            `,
        },
        {
            Version: 3,
            Name:    "create_activity_log",
            SQL: `
                CREATE TABLE IF NOT EXISTS activity_log (
                    id BIGSERIAL PRIMARY KEY,
                    user_id UUID NOT NULL REFERENCES users(id),
                    action VARCHAR(100) NOT NULL,
                    description TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
                );

                CREATE INDEX IF NOT EXISTS idx_activity_log_created_at
                    ON activity_log (created_at DESC);
            `,
        },
        {
            Version: 4,
            Name:    "create_token_tables",
            SQL: `
                CREATE TABLE IF NOT EXISTS password_reset_tokens (
                    id UUID PRIMARY KEY,
                    user_id UUID NOT NULL REFERENCES users(id),
                    token VARCHAR(64) NOT NULL,
                    expires_at TIMESTAMPTZ NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
                );

                CREATE TABLE IF NOT EXISTS refresh_tokens (
                    id UUID PRIMARY KEY,
                    user_id UUID NOT NULL REFERENCES users(id),
                    token TEXT NOT NULL,
                    expires_at TIMESTAMPTZ NOT NULL,
                    revoked_at TIMESTAMPTZ
                );
            `,
        },
        {
            Version: 5,
            Name:    "unique_active_slot_per_doctor",
            SQL: `
                -- Storage-layer backstop for the conflict checker: the
                -- availability check and the insert are separate statements,
                -- so concurrent bookings of the same slot must fail here.
                CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_slot
                    ON appointments (doctor_id, fecha, hora)
                    WHERE status <> 'cancelled';
            `,
        },
    }
}

// Apply runs every pending migration in version order inside its own
// transaction and records it in schema_migrations.
func Apply(db *sql.DB, logger *zap.Logger) error {
    _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )
    `)
    if err != nil {
        return fmt.Errorf("create schema_migrations: %w", err)
    }

    for _, m := range All() {
        var applied bool
        err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&applied)
        if err != nil {
            return fmt.Errorf("check migration %d: %w", m.Version, err)
        }
        if applied {
            continue
        }

        tx, err := db.Begin()
        if err != nil {
            return fmt.Errorf("begin migration %d: %w", m.Version, err)
        }

        if _, err := tx.Exec(m.SQL); err != nil {
            tx.Rollback()
            return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
        }
        if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
            tx.Rollback()
            return fmt.Errorf("record migration %d: %w", m.Version, err)
        }
        if err := tx.Commit(); err != nil {
            return fmt.Errorf("commit migration %d: %w", m.Version, err)
        }

        logger.Info("applied migration", zap.Int("version", m.Version), zap.String("name", m.Name))
    }

    return nil
}

package models

import (
    "time"
)

type User struct {
    ID             string     `json:"id" db:"id"`
    Name           string     `json:"nombre" db:"name"`
    Surname        string     `json:"apellido" db:"surname"`
    Email          string     `json:"correo" db:"email"`
    PasswordHash   string     `json:"-" db:"password_hash"`
    RoleID         int        `json:"rol_id" db:"role_id"`
    RoleName       string     `json:"rol,omitempty" db:"role_name"`
    Active         bool       `json:"activo" db:"active"`
    FailedAttempts int        `json:"-" db:"failed_attempts"`
    IsLocked       bool       `json:"-" db:"is_locked"`
    LockUntil      *time.Time `json:"-" db:"lock_until"`
    CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

type Role struct {
    ID   int    `json:"id" db:"id"`
    Name string `json:"nombre" db:"name"`
}

type PasswordResetToken struct {
    ID        string    `json:"id" db:"id"`
    UserID    string    `json:"usuario_id" db:"user_id"`
    Token     string    `json:"-" db:"token"`
    ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
    CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RefreshToken struct {
    ID        string     `json:"id" db:"id"`
    UserID    string     `json:"usuario_id" db:"user_id"`
    Token     string     `json:"-" db:"token"`
    ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
    RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

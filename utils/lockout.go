package utils

import (
    "database/sql"
    "errors"
    "time"

    "go.uber.org/zap"
)

// ErrUserNotFound is returned when a lockout operation references a user id
// that does not exist.
var ErrUserNotFound = errors.New("user not found")

// LockoutPolicy decides lock/unlock transitions from login attempts. All
// mutations are persisted synchronously before the methods return.
type LockoutPolicy struct {
    db           *sql.DB
    logger       *zap.Logger
    maxAttempts  int
    lockDuration time.Duration
}

func NewLockoutPolicy(db *sql.DB, logger *zap.Logger, maxAttempts, lockDurationMinutes int) *LockoutPolicy {
    if maxAttempts <= 0 {
        maxAttempts = 3
    }
    if lockDurationMinutes <= 0 {
        lockDurationMinutes = 15
    }
    return &LockoutPolicy{
        db:           db,
        logger:       logger,
        maxAttempts:  maxAttempts,
        lockDuration: time.Duration(lockDurationMinutes) * time.Minute,
    }
}

// UnlockResult describes the outcome of an auto-unlock attempt.
type UnlockResult struct {
    Unlocked         bool
    AlreadyUnlocked  bool
    Indefinite       bool
    RemainingMinutes int
}

// RecordFailedAttempt increments the user's failed-attempt counter and locks
// the account when the configured maximum is reached. The increment and the
// lock decision happen in one UPDATE so concurrent failures cannot
// under-count.
func (p *LockoutPolicy) RecordFailedAttempt(userID string) (attempts int, locked bool, err error) {
    lockUntil := time.Now().Add(p.lockDuration)

    err = p.db.QueryRow(`
        UPDATE users
        SET failed_attempts = failed_attempts + 1,
            is_locked = is_locked OR failed_attempts + 1 >= $2,
            lock_until = CASE
                WHEN NOT is_locked AND failed_attempts + 1 >= $2 THEN $3
                ELSE lock_until
            END
        WHERE id = $1
        RETURNING failed_attempts, is_locked
    `, userID, p.maxAttempts, lockUntil).Scan(&attempts, &locked)
    if err == sql.ErrNoRows {
        return 0, false, ErrUserNotFound
    }
    if err != nil {
        return 0, false, err
    }

    if locked {
        p.logger.Warn("account locked after repeated failed logins",
            zap.String("user_id", userID),
            zap.Int("failed_attempts", attempts))
    }
    return attempts, locked, nil
}

// RecordSuccess resets the failed-attempt counter and clears any lock state.
func (p *LockoutPolicy) RecordSuccess(userID string) error {
    result, err := p.db.Exec(`
        UPDATE users
        SET failed_attempts = 0, is_locked = false, lock_until = NULL
        WHERE id = $1
    `, userID)
    if err != nil {
        return err
    }

    rows, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if rows == 0 {
        return ErrUserNotFound
    }
    return nil
}

// AttemptAutoUnlock clears an expired lock. For a lock still within its
// window it reports the remaining minutes (ceiling); a lock without a
// lock_until is indefinite and never auto-expires.
func (p *LockoutPolicy) AttemptAutoUnlock(userID string) (UnlockResult, error) {
    var isLocked bool
    var lockUntil *time.Time

    err := p.db.QueryRow(`
        SELECT is_locked, lock_until FROM users WHERE id = $1
    `, userID).Scan(&isLocked, &lockUntil)
    if err == sql.ErrNoRows {
        return UnlockResult{}, ErrUserNotFound
    }
    if err != nil {
        return UnlockResult{}, err
    }

    if !isLocked {
        return UnlockResult{AlreadyUnlocked: true}, nil
    }

    if lockUntil == nil {
        return UnlockResult{Indefinite: true}, nil
    }

    msLeft := time.Until(*lockUntil).Milliseconds()
    if msLeft > 0 {
        return UnlockResult{RemainingMinutes: int((msLeft + 59999) / 60000)}, nil
    }

    if err := p.RecordSuccess(userID); err != nil {
        return UnlockResult{}, err
    }

    p.logger.Info("lock expired, account auto-unlocked", zap.String("user_id", userID))
    return UnlockResult{Unlocked: true}, nil
}

package security

import (
    "crypto/rand"
    "fmt"
    "strings"
    "unicode"
)

// PasswordSpecialChars is the accepted special character set for passwords.
const PasswordSpecialChars = "!@#$%^&*"

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// PasswordCheck is the result of validating a candidate password. Every
// failed rule contributes one message; checks are not short-circuited.
type PasswordCheck struct {
    IsValid bool     `json:"isValid"`
    Errors  []string `json:"errors"`
}

// ValidatePassword applies the account password policy and collects all
// rule failures.
func ValidatePassword(password string) PasswordCheck {
    var errs []string

    if len(password) < 8 {
        errs = append(errs, "La contraseña debe tener al menos 8 caracteres")
    }

    var hasUpper, hasLower, hasDigit bool
    for _, r := range password {
        switch {
        case unicode.IsUpper(r):
            hasUpper = true
        case unicode.IsLower(r):
            hasLower = true
        case unicode.IsDigit(r):
            hasDigit = true
        }
    }

    if !hasUpper {
        errs = append(errs, "La contraseña debe incluir al menos una letra mayúscula")
    }
    if !hasLower {
        errs = append(errs, "La contraseña debe incluir al menos una letra minúscula")
    }
    if !hasDigit {
        errs = append(errs, "La contraseña debe incluir al menos un número")
    }
    if !strings.ContainsAny(password, PasswordSpecialChars) {
        errs = append(errs, "La contraseña debe incluir al menos un carácter especial ("+PasswordSpecialChars+")")
    }

    if errs == nil {
        errs = []string{}
    }
    return PasswordCheck{IsValid: len(errs) == 0, Errors: errs}
}

// GenerateSecureToken returns a random token of the given length over a
// 62-character alphanumeric alphabet, using one byte of crypto/rand entropy
// per output character. Mapping a byte with modulo 62 skews the first few
// characters of the alphabet slightly; the bias is negligible for reset
// tokens and accepted here.
func GenerateSecureToken(length int) (string, error) {
    if length <= 0 {
        length = 8
    }

    buf := make([]byte, length)
    if _, err := rand.Read(buf); err != nil {
        return "", fmt.Errorf("read random bytes: %w", err)
    }

    out := make([]byte, length)
    for i, b := range buf {
        out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
    }
    return string(out), nil
}

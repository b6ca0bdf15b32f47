package security

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestValidatePassword_CollectsAllFailures(t *testing.T) {
    // "abc" is short, has no uppercase, no digit and no special char; the
    // lowercase rule passes.
    check := ValidatePassword("abc")

    assert.False(t, check.IsValid)
    assert.Len(t, check.Errors, 4)
}

func TestValidatePassword_Valid(t *testing.T) {
    check := ValidatePassword("Abcdef1!")

    assert.True(t, check.IsValid)
    assert.Empty(t, check.Errors)
}

func TestValidatePassword_SingleRuleFailures(t *testing.T) {
    tests := []struct {
        name     string
        password string
        failures int
    }{
        {"missing uppercase", "abcdef1!", 1},
        {"missing lowercase", "ABCDEF1!", 1},
        {"missing digit", "Abcdefg!", 1},
        {"missing special", "Abcdefg1", 1},
        {"too short only", "Abc1!xy", 1},
        {"empty fails everything", "", 5},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            check := ValidatePassword(tt.password)
            assert.False(t, check.IsValid)
            assert.Len(t, check.Errors, tt.failures)
        })
    }
}

func TestGenerateSecureToken_LengthAndAlphabet(t *testing.T) {
    token, err := GenerateSecureToken(8)
    require.NoError(t, err)

    assert.Len(t, token, 8)
    for _, r := range token {
        assert.True(t, strings.ContainsRune(tokenAlphabet, r), "unexpected character %q", r)
    }
}

func TestGenerateSecureToken_DefaultLength(t *testing.T) {
    token, err := GenerateSecureToken(0)
    require.NoError(t, err)
    assert.Len(t, token, 8)
}

func TestGenerateSecureToken_NoTrivialCollisions(t *testing.T) {
    seen := map[string]bool{}
    for i := 0; i < 100; i++ {
        token, err := GenerateSecureToken(8)
        require.NoError(t, err)
        assert.False(t, seen[token], "token %q repeated", token)
        seen[token] = true
    }
}

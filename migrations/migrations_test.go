package migrations

import (
    "strings"
    "testing"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
)

func TestMigrationVersionsAreStrictlyIncreasing(t *testing.T) {
    all := All()
    require.NotEmpty(t, all)

    prev := 0
    for _, m := range all {
        assert.Greater(t, m.Version, prev, "migration %q out of order", m.Name)
        assert.NotEmpty(t, m.Name)
        assert.NotEmpty(t, strings.TrimSpace(m.SQL))
        prev = m.Version
    }
}

func TestSlotUniquenessIndexIsDefined(t *testing.T) {
    var found bool
    for _, m := range All() {
        if strings.Contains(m.SQL, "uq_appointments_slot") {
            found = true
            assert.Contains(t, m.SQL, "WHERE status <> 'cancelled'")
        }
    }
    assert.True(t, found, "missing unique slot index migration")
}

func TestApply_SkipsAlreadyApplied(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
        WillReturnResult(sqlmock.NewResult(0, 0))

    for range All() {
        mock.ExpectQuery("SELECT EXISTS").
            WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
    }

    err = Apply(db, zap.NewNop())

    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RunsPendingInTransaction(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    all := All()

    mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
        WillReturnResult(sqlmock.NewResult(0, 0))

    for _, m := range all {
        mock.ExpectQuery("SELECT EXISTS").
            WithArgs(m.Version).
            WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
        mock.ExpectBegin()
        mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
        mock.ExpectExec("INSERT INTO schema_migrations").
            WithArgs(m.Version, m.Name).
            WillReturnResult(sqlmock.NewResult(0, 1))
        mock.ExpectCommit()
    }

    err = Apply(db, zap.NewNop())

    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_SQLiteContract(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "fund.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	s := NewSQLStore(db, DialectSQLite)
	require.NoError(t, s.Init(context.Background()))
	runStoreContract(t, s)
}

func TestSQLStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer func() { _ = db.Close() }()

	s := NewSQLStore(db, DialectPostgres)
	mock.ExpectExec(`INSERT INTO fund_instances .* VALUES \(\$1, 1, FALSE, \$2, \$3\)`).
		WithArgs("inst-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Create(context.Background(), "inst-1", fixture()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSQLStore(db, DialectPostgres)
	mock.ExpectExec("INSERT INTO fund_instances").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, s.Create(context.Background(), "inst-1", fixture()), ErrExists)
}

func TestSQLStore_ReplaceStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSQLStore(db, DialectPostgres)
	mock.ExpectExec(`UPDATE fund_instances .* WHERE id = \$3 AND version = \$4 AND retired = FALSE`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "inst-1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, retired, document FROM fund_instances").
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "retired", "document"}).AddRow(int64(3), false, "{}"))

	_, err = s.Replace(context.Background(), "inst-1", 1, fixture())
	require.ErrorIs(t, err, ErrStaleVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_RetireRetired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSQLStore(db, DialectPostgres)
	mock.ExpectExec("UPDATE fund_instances").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, retired, document FROM fund_instances").
		WillReturnRows(sqlmock.NewRows([]string{"version", "retired", "document"}).AddRow(int64(4), true, "{}"))

	require.ErrorIs(t, s.Retire(context.Background(), "inst-1", 3), ErrRetired)
}

func TestSQLStore_IncompatibleSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewSQLStore(db, DialectSQLite)
	doc := `{"record":{},"schema_version":"2.0.0"}`
	mock.ExpectQuery(`SELECT version, retired, document FROM fund_instances WHERE id = \?`).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "retired", "document"}).AddRow(int64(1), false, doc))

	_, err = s.Load(context.Background(), "inst-1")
	require.ErrorIs(t, err, ErrIncompatibleSchema)
}

func TestSQLStore_Bind(t *testing.T) {
	lite := NewSQLStore(nil, DialectSQLite)
	assert.Equal(t, "a = ? AND b = ? AND c = ?", lite.bind("a = $1 AND b = $2 AND c = $10"))
	assert.Equal(t, "price = '$'", lite.bind("price = '$'"))

	pg := NewSQLStore(nil, DialectPostgres)
	assert.Equal(t, "a = $1", pg.bind("a = $1"))
}

func TestCheckSchema(t *testing.T) {
	require.NoError(t, checkSchema("1.0.0"))
	require.NoError(t, checkSchema("1.4.2"))
	require.ErrorIs(t, checkSchema("2.0.0"), ErrIncompatibleSchema)
	require.ErrorIs(t, checkSchema("0.9.0"), ErrIncompatibleSchema)
	require.ErrorIs(t, checkSchema(""), ErrIncompatibleSchema)
}

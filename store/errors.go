package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ConflictError reports a unique index violation on Field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already exists"
}

// AsConflict unwraps a *ConflictError from err.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// translate maps driver and gorm errors onto ErrNotFound and *ConflictError.
// Anything else is returned unchanged and treated as internal by callers.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if field, ok := duplicateField(err); ok {
		return &ConflictError{Field: field}
	}
	return err
}

const mysqlDuplicateEntry = 1062

func duplicateField(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return fieldFromMySQL(me.Message), true
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fieldFromSQLite(se.Error()), true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "record", true
	}
	return "", false
}

// fieldFromMySQL parses "Duplicate entry 'x' for key 'users.uniq_users_username'".
func fieldFromMySQL(msg string) string {
	const marker = "for key '"
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return "record"
	}
	key := strings.TrimSuffix(msg[i+len(marker):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	if key == "PRIMARY" {
		return "id"
	}
	// uniq_<table>_<column>
	if rest, ok := strings.CutPrefix(key, "uniq_"); ok {
		if _, column, ok := strings.Cut(rest, "_"); ok {
			return column
		}
	}
	return key
}

// fieldFromSQLite parses "UNIQUE constraint failed: users.username".
func fieldFromSQLite(msg string) string {
	_, cols, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return "record"
	}
	first, _, _ := strings.Cut(cols, ",")
	if dot := strings.LastIndex(first, "."); dot >= 0 {
		first = first[dot+1:]
	}
	return strings.TrimSpace(first)
}

package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const pqUniqueViolation = "23505"

// UniqueViolation reports whether err is a unique-constraint failure and, if
// the driver says so, which column collided. Constraints are named
// <table>_<column>_key in both dialects.
func UniqueViolation(err error) (column string, ok bool) {
	if err == nil {
		return "", false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != pqUniqueViolation {
			return "", false
		}
		return columnFromConstraint(pqErr.Table, pqErr.Constraint), true
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return columnFromSQLiteMessage(sqliteErr.Error()), true
		}
		return "", false
	}

	message := strings.ToLower(err.Error())
	if strings.Contains(message, "unique constraint failed") {
		return columnFromSQLiteMessage(message), true
	}
	return "", false
}

func columnFromConstraint(table, constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if table != "" {
		name = strings.TrimPrefix(name, table+"_")
	} else if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// columnFromSQLiteMessage parses "UNIQUE constraint failed: users.email".
func columnFromSQLiteMessage(message string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(strings.ToLower(message), marker)
	if i < 0 {
		return ""
	}
	target := message[i+len(marker):]
	if j := strings.IndexAny(target, ", ("); j >= 0 {
		target = target[:j]
	}
	if k := strings.LastIndex(target, "."); k >= 0 {
		target = target[k+1:]
	}
	return strings.TrimSpace(target)
}

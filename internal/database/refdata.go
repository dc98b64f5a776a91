package database

import (
	"database/sql"
	"fmt"
)

// ResolveUniversity returns the id of the university with the given name,
// creating the row on first reference. The name is a natural key: calling
// this twice with the same name yields the same id.
func (db *DB) ResolveUniversity(name string) (int64, error) {
	return db.resolveOrCreate("universities", "name", name)
}

// ResolveStream returns the id of the stream with the given name,
// creating the row on first reference.
func (db *DB) ResolveStream(name string) (int64, error) {
	return db.resolveOrCreate("streams", "name", name)
}

// ResolveSemester returns the id of the semester with the given number,
// creating the row on first reference.
func (db *DB) ResolveSemester(number int) (int64, error) {
	return db.resolveOrCreate("semesters", "number", number)
}

// resolveOrCreate looks up a reference-data row by its natural key and
// inserts it if absent, inside a single transaction. The UNIQUE constraint
// on the key column backstops concurrent callers: if the insert loses a
// race the winner's row is re-read instead of creating a duplicate.
func (db *DB) resolveOrCreate(table, keyColumn string, key any) (int64, error) {
	var id int64

	selectStmt := fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, keyColumn)
	insertStmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", table, keyColumn)

	err := db.Transaction(func(tx *sql.Tx) error {
		err := tx.QueryRow(selectStmt, key).Scan(&id)
		if err == nil {
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to look up %s: %w", table, err)
		}

		result, err := tx.Exec(insertStmt, key)
		if isUniqueViolation(err) {
			// Lost the race to a concurrent insert; take the winner's id.
			if err := tx.QueryRow(selectStmt, key).Scan(&id); err != nil {
				return fmt.Errorf("failed to re-read %s after conflict: %w", table, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}

		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get %s id: %w", table, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

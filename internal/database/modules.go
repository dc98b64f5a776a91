package database

import (
	"database/sql"
	"fmt"
)

// Module represents a module belonging to exactly one subject
type Module struct {
	ID        int64
	SubjectID int64
	Title     string
}

// CreateModule inserts a new module under a subject
func (db *DB) CreateModule(subjectID int64, title string) (*Module, error) {
	result, err := db.Exec(`
		INSERT INTO modules (subject_id, title) VALUES (?, ?)
	`, subjectID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get module id: %w", err)
	}

	return &Module{ID: id, SubjectID: subjectID, Title: title}, nil
}

// GetModuleByID retrieves a module by ID
func (db *DB) GetModuleByID(id int64) (*Module, error) {
	m := &Module{}
	err := db.QueryRow(`
		SELECT id, subject_id, title FROM modules WHERE id = ?
	`, id).Scan(&m.ID, &m.SubjectID, &m.Title)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return m, nil
}

// ListModulesBySubject returns the modules of a subject ordered by title
func (db *DB) ListModulesBySubject(subjectID int64) ([]*Module, error) {
	rows, err := db.Query(`
		SELECT id, subject_id, title FROM modules WHERE subject_id = ? ORDER BY title
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []*Module
	for rows.Next() {
		m := &Module{}
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Title); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

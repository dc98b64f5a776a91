package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Content is an append-only unit of instructional material in a module
type Content struct {
	ID          int64
	ModuleID    int64
	ContentType string
	Data        string
	CreatedAt   time.Time
}

// Task is an append-only unit of work in a module
type Task struct {
	ID          int64
	ModuleID    int64
	Description string
	CreatedAt   time.Time
}

// AddContent appends a unit of content to a module
func (db *DB) AddContent(moduleID int64, contentType, data string) error {
	_, err := db.Exec(`
		INSERT INTO content (module_id, content_type, data, created_at)
		VALUES (?, ?, ?, ?)
	`, moduleID, contentType, data, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add content: %w", err)
	}
	return nil
}

// ListContentByModule returns the content of a module in insertion order
func (db *DB) ListContentByModule(moduleID int64) ([]*Content, error) {
	rows, err := db.Query(`
		SELECT id, module_id, content_type, data, created_at
		FROM content WHERE module_id = ?
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var items []*Content
	for rows.Next() {
		c := &Content{}
		if err := rows.Scan(&c.ID, &c.ModuleID, &c.ContentType, &c.Data, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// AddTask appends a task to a module
func (db *DB) AddTask(moduleID int64, description string) error {
	_, err := db.Exec(`
		INSERT INTO tasks (module_id, description, created_at)
		VALUES (?, ?, ?)
	`, moduleID, description, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a task by ID
func (db *DB) GetTaskByID(id int64) (*Task, error) {
	t := &Task{}
	err := db.QueryRow(`
		SELECT id, module_id, description, created_at FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.ModuleID, &t.Description, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasksByModule returns the tasks of a module in insertion order
func (db *DB) ListTasksByModule(moduleID int64) ([]*Task, error) {
	rows, err := db.Query(`
		SELECT id, module_id, description, created_at
		FROM tasks WHERE module_id = ?
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.ModuleID, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

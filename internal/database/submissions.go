package database

import (
	"fmt"
	"time"
)

// ProofOfWork is a student's submitted artifact evidencing completion of
// a task. Multiple submissions per (task, user) are allowed and kept in
// insertion order as a resubmission history.
type ProofOfWork struct {
	ID           int64
	TaskID       int64
	UserID       int64
	FilePath     string
	OriginalName string
	Comments     string
	CreatedAt    time.Time
}

// TaskSubmission is a proof-of-work row joined with its submitter for
// the teacher review view
type TaskSubmission struct {
	ProofOfWork
	Username string
}

// CreateProofOfWork records a submission against a task. FilePath is the
// sanitized on-disk name; OriginalName is the client filename, kept only
// as display metadata.
func (db *DB) CreateProofOfWork(taskID, userID int64, filePath, originalName, comments string) (*ProofOfWork, error) {
	now := time.Now()
	result, err := db.Exec(`
		INSERT INTO proof_of_work (task_id, user_id, file_path, original_name, comments, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, taskID, userID, filePath, originalName, comments, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create proof of work: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get proof of work id: %w", err)
	}

	return &ProofOfWork{
		ID:           id,
		TaskID:       taskID,
		UserID:       userID,
		FilePath:     filePath,
		OriginalName: originalName,
		Comments:     comments,
		CreatedAt:    now,
	}, nil
}

// SubmittedTaskIDs returns the ids of the tasks in a module the user has
// at least one submission for
func (db *DB) SubmittedTaskIDs(userID, moduleID int64) (map[int64]bool, error) {
	rows, err := db.Query(`
		SELECT DISTINCT p.task_id
		FROM proof_of_work p
		JOIN tasks t ON p.task_id = t.id
		WHERE p.user_id = ? AND t.module_id = ?
	`, userID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submitted tasks: %w", err)
	}
	defer rows.Close()

	submitted := make(map[int64]bool)
	for rows.Next() {
		var taskID int64
		if err := rows.Scan(&taskID); err != nil {
			return nil, err
		}
		submitted[taskID] = true
	}
	return submitted, rows.Err()
}

// ListSubmissionsByTask returns all submissions for a task with their
// submitters, in insertion order
func (db *DB) ListSubmissionsByTask(taskID int64) ([]*TaskSubmission, error) {
	rows, err := db.Query(`
		SELECT p.id, p.task_id, p.user_id, p.file_path, p.original_name, p.comments, p.created_at, u.username
		FROM proof_of_work p
		JOIN users u ON p.user_id = u.id
		WHERE p.task_id = ?
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*TaskSubmission
	for rows.Next() {
		s := &TaskSubmission{}
		err := rows.Scan(&s.ID, &s.TaskID, &s.UserID, &s.FilePath, &s.OriginalName, &s.Comments, &s.CreatedAt, &s.Username)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// ListSubmissionFilePaths returns every file path recorded in
// proof_of_work, for the orphaned-upload sweep
func (db *DB) ListSubmissionFilePaths() (map[string]bool, error) {
	rows, err := db.Query(`SELECT file_path FROM proof_of_work`)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission files: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]bool)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths[path] = true
	}
	return paths, rows.Err()
}

package database

import (
	"database/sql"
	"fmt"
)

// Subject represents a subject owned by the teacher who created it
type Subject struct {
	ID           int64
	Name         string
	UniversityID int64
	StreamID     int64
	SemesterID   int64
	TeacherID    int64
}

// SubjectListing is a subject joined with its reference-data names for display
type SubjectListing struct {
	ID             int64
	Name           string
	UniversityName string
	StreamName     string
	SemesterNumber int
}

// CreateSubject inserts a new subject with pre-resolved reference ids
func (db *DB) CreateSubject(name string, universityID, streamID, semesterID, teacherID int64) (*Subject, error) {
	result, err := db.Exec(`
		INSERT INTO subjects (name, university_id, stream_id, semester_id, teacher_id)
		VALUES (?, ?, ?, ?, ?)
	`, name, universityID, streamID, semesterID, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get subject id: %w", err)
	}

	return &Subject{
		ID:           id,
		Name:         name,
		UniversityID: universityID,
		StreamID:     streamID,
		SemesterID:   semesterID,
		TeacherID:    teacherID,
	}, nil
}

// GetSubjectByID retrieves a subject by ID
func (db *DB) GetSubjectByID(id int64) (*Subject, error) {
	s := &Subject{}
	err := db.QueryRow(`
		SELECT id, name, university_id, stream_id, semester_id, teacher_id
		FROM subjects WHERE id = ?
	`, id).Scan(&s.ID, &s.Name, &s.UniversityID, &s.StreamID, &s.SemesterID, &s.TeacherID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return s, nil
}

// ListSubjectsByTeacher returns all subjects owned by a teacher
func (db *DB) ListSubjectsByTeacher(teacherID int64) ([]*Subject, error) {
	rows, err := db.Query(`
		SELECT id, name, university_id, stream_id, semester_id, teacher_id
		FROM subjects WHERE teacher_id = ?
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*Subject
	for rows.Next() {
		s := &Subject{}
		if err := rows.Scan(&s.ID, &s.Name, &s.UniversityID, &s.StreamID, &s.SemesterID, &s.TeacherID); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// ListSubjects returns all subjects joined with their university, stream
// and semester names, ordered by subject name
func (db *DB) ListSubjects() ([]*SubjectListing, error) {
	rows, err := db.Query(`
		SELECT s.id, s.name, u.name, st.name, sem.number
		FROM subjects s
		JOIN universities u ON s.university_id = u.id
		JOIN streams st ON s.stream_id = st.id
		JOIN semesters sem ON s.semester_id = sem.id
		ORDER BY s.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var listings []*SubjectListing
	for rows.Next() {
		l := &SubjectListing{}
		if err := rows.Scan(&l.ID, &l.Name, &l.UniversityName, &l.StreamName, &l.SemesterNumber); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

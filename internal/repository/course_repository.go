package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
)

// CourseRepository provides read access to course assignments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// GetByID fetches a course by identifier.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, lecturer_id, active, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// IsLecturerFor reports whether the user lectures the given course.
func (r *CourseRepository) IsLecturerFor(ctx context.Context, lecturerID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1 AND lecturer_id = $2 AND active)`
	var assigned bool
	if err := r.db.GetContext(ctx, &assigned, query, courseID, lecturerID); err != nil {
		return false, fmt.Errorf("check course assignment: %w", err)
	}
	return assigned, nil
}

// ListByLecturer returns the active courses taught by a lecturer.
func (r *CourseRepository) ListByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error) {
	const query = `SELECT id, code, name, lecturer_id, active, created_at, updated_at
	 FROM courses WHERE lecturer_id = $1 AND active ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list courses by lecturer: %w", err)
	}
	return courses, nil
}

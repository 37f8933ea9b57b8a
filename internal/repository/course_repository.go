package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// CourseRepo is the MySQL implementation of CourseStore.  Benefits,
// prerequisites, reviews and sections are JSON columns: the catalog entity
// is a document, and the handlers always read and write it whole.
type CourseRepo struct{ DB *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{DB: db} }

const courseColumns = "id,name,description,price,estimated_price,thumbnail_public_id,thumbnail_url,tags,level,demo_url,benefits,prerequisites,reviews,sections,ratings,purchased,created_at,updated_at"

// Create inserts a course, assigning a fresh id and section ids.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	c.ID = uuid.NewString()
	for i := range c.Sections {
		if c.Sections[i].ID == "" {
			c.Sections[i].ID = uuid.NewString()
		}
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	benefits, prereqs, reviews, sections, err := marshalCourseDocs(c)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO courses (`+courseColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Name, c.Description, c.Price, c.EstimatedPrice, c.Thumbnail.PublicID, c.Thumbnail.URL,
		c.Tags, c.Level, c.DemoURL, benefits, prereqs, reviews, sections, c.Ratings, c.Purchased,
		c.CreatedAt, c.UpdatedAt)
	return err
}

// GetByID fetches a single course.
func (r *CourseRepo) GetByID(ctx context.Context, id string) (model.Course, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+courseColumns+" FROM courses WHERE id=? LIMIT 1", id)
	c, err := scanCourse(row)
	if err == sql.ErrNoRows {
		return model.Course{}, ErrNotFound
	}
	return c, err
}

// GetAll fetches the whole catalog ordered by creation time.
func (r *CourseRepo) GetAll(ctx context.Context) ([]model.Course, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+courseColumns+" FROM courses ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Save overwrites the mutable columns of an existing course row.
func (r *CourseRepo) Save(ctx context.Context, c *model.Course) error {
	for i := range c.Sections {
		if c.Sections[i].ID == "" {
			c.Sections[i].ID = uuid.NewString()
		}
	}
	c.UpdatedAt = time.Now().UTC()
	benefits, prereqs, reviews, sections, err := marshalCourseDocs(c)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE courses SET name=?, description=?, price=?, estimated_price=?, thumbnail_public_id=?, thumbnail_url=?,
		 tags=?, level=?, demo_url=?, benefits=?, prerequisites=?, reviews=?, sections=?, ratings=?, purchased=?, updated_at=?
		 WHERE id=?`,
		c.Name, c.Description, c.Price, c.EstimatedPrice, c.Thumbnail.PublicID, c.Thumbnail.URL,
		c.Tags, c.Level, c.DemoURL, benefits, prereqs, reviews, sections, c.Ratings, c.Purchased,
		c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanCourse(row rowScanner) (model.Course, error) {
	var (
		c                                   model.Course
		benefits, prereqs, reviews, sections []byte
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.Price, &c.EstimatedPrice,
		&c.Thumbnail.PublicID, &c.Thumbnail.URL, &c.Tags, &c.Level, &c.DemoURL,
		&benefits, &prereqs, &reviews, &sections, &c.Ratings, &c.Purchased,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Course{}, err
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{benefits, &c.Benefits},
		{prereqs, &c.Prerequisites},
		{reviews, &c.Reviews},
		{sections, &c.Sections},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return model.Course{}, err
		}
	}
	if c.Reviews == nil {
		c.Reviews = []model.Review{}
	}
	if c.Sections == nil {
		c.Sections = []model.Section{}
	}
	return c, nil
}

func marshalCourseDocs(c *model.Course) (benefits, prereqs, reviews, sections []byte, err error) {
	if benefits, err = json.Marshal(c.Benefits); err != nil {
		return
	}
	if prereqs, err = json.Marshal(c.Prerequisites); err != nil {
		return
	}
	if reviews, err = json.Marshal(c.Reviews); err != nil {
		return
	}
	sections, err = json.Marshal(c.Sections)
	return
}

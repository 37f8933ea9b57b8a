package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// UserRepo is the MySQL implementation of UserStore.  The purchased-course
// list lives in a JSON column; everything else is a plain column.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns the stored record.  The password is
// hashed here so no caller ever handles a hash directly; an empty password
// stores an empty hash (social-auth account).
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var hash string
	if password != "" {
		h, err := utils.HashPassword(password, cost)
		if err != nil {
			return model.User{}, err
		}
		hash = h
	}
	u := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Courses:      []string{},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	courses, err := json.Marshal(u.Courses)
	if err != nil {
		return model.User{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, avatar_public_id, avatar_url, role, is_verified, courses, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Avatar.PublicID, u.Avatar.URL, u.Role, u.IsVerified, courses, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx,
		"SELECT id,name,email,password_hash,avatar_public_id,avatar_url,role,is_verified,courses,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx,
		"SELECT id,name,email,password_hash,avatar_public_id,avatar_url,role,is_verified,courses,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var (
		u       model.User
		courses []byte
	)
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar.PublicID, &u.Avatar.URL,
		&u.Role, &u.IsVerified, &courses, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if len(courses) > 0 {
		if err := json.Unmarshal(courses, &u.Courses); err != nil {
			return model.User{}, err
		}
	}
	if u.Courses == nil {
		u.Courses = []string{}
	}
	return u, nil
}

// Save overwrites the mutable columns of an existing user row.
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.UpdatedAt = time.Now().UTC()
	courses, err := json.Marshal(u.Courses)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET name=?, email=?, password_hash=?, avatar_public_id=?, avatar_url=?, role=?, is_verified=?, courses=?, updated_at=?
		 WHERE id=?`,
		u.Name, u.Email, u.PasswordHash, u.Avatar.PublicID, u.Avatar.URL, u.Role, u.IsVerified, courses, u.UpdatedAt, u.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op update;
		// confirm existence before reporting not found.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

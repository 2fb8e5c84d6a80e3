package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skycast/skycast-be/internal/apperr"
	"github.com/skycast/skycast-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor existing password hashes were
// created with.
const bcryptCost = 12

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ProfileUpdate carries the optional profile fields for a partial update.
// Empty fields are skipped, not cleared; existing consumers rely on that.
type ProfileUpdate struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Phone          string `json:"phone"`
	Location       string `json:"location"`
	Bio            string `json:"bio"`
	JobTitle       string `json:"jobTitle"`
	Company        string `json:"company"`
	ProfilePicture string `json:"profilePicture"`
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, email, password string) error
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetProfile(ctx context.Context, id string) (models.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, username, email, password_hash, first_name, last_name,
	phone, location, bio, job_title, company, profile_picture, created_at`

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Phone, &user.Location,
		&user.Bio, &user.JobTitle, &user.Company, &user.ProfilePicture,
		&user.CreatedAt)
	return user, err
}

// Register validates and persists a new user with a hashed password.
func (s *UserService) Register(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("username, email and password are required: %w", apperr.ErrValidation)
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters long: %w", apperr.ErrValidation)
	}

	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address: %w", apperr.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, username, email, password_hash, created_at) VALUES(?, ?, ?, ?, ?)",
		uuid.New().String(), username, email, string(hashedPassword), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with email %s %w", email, apperr.ErrDuplicate)
		}
		return err
	}
	return nil
}

// Authenticate verifies a user's credentials. Unknown emails and wrong
// passwords return the same error so the response leaks nothing about
// which check failed.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, apperr.ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// GetProfile retrieves a single user by their ID, minus the password hash.
func (s *UserService) GetProfile(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
		}
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile applies only the fields present in the update. An empty
// string means "leave unchanged"; a field cannot be cleared through this
// path, matching what the shipped clients expect.
func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (models.User, error) {
	type column struct {
		name  string
		value string
	}

	columns := []column{
		{"username", update.Username},
		{"first_name", update.FirstName},
		{"last_name", update.LastName},
		{"phone", update.Phone},
		{"location", update.Location},
		{"bio", update.Bio},
		{"job_title", update.JobTitle},
		{"company", update.Company},
		{"profile_picture", update.ProfilePicture},
	}

	var sets []string
	var args []interface{}
	for _, col := range columns {
		if col.value != "" {
			sets = append(sets, col.name+" = ?")
			args = append(args, col.value)
		}
	}

	if update.Email != "" {
		email := normalizeEmail(update.Email)
		if !emailPattern.MatchString(email) {
			return models.User{}, fmt.Errorf("invalid email address: %w", apperr.ErrValidation)
		}
		sets = append(sets, "email = ?")
		args = append(args, email)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return models.User{}, fmt.Errorf("email %w", apperr.ErrDuplicate)
			}
			return models.User{}, err
		}
		if rows, err := res.RowsAffected(); err == nil && rows == 0 {
			return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
		}
	}

	return s.GetProfile(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueViolation detects SQLite unique-index failures. The driver has
// no typed error for this, so match on the constraint message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/anbuselvan/assetsync/internal/models"
)

// Default credentials seeded on first run. Change immediately after setup.
const (
	bootstrapUsername = "admin"
	bootstrapPassword = "admin123"
)

// Repository interface defines the methods that any user store implementation must satisfy
type Repository interface {
	// CreateUser hashes the password and inserts a new account. It returns
	// false without error when the username is already taken.
	CreateUser(ctx context.Context, username, password, fullName, email, role string) (bool, error)

	// GetUser looks up an account by exact username, nil when absent.
	GetUser(ctx context.Context, username string) (*models.User, error)

	// Authenticate verifies the password and stamps last_login on success.
	// A wrong password and an unknown username both return nil, nil.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)

	// Bootstrap seeds the default admin account when no admin exists yet.
	Bootstrap(ctx context.Context) error
}

// SQLiteUserRepository implements the Repository interface over the users
// database file
type SQLiteUserRepository struct {
	db *sqlx.DB
}

// NewSQLiteUserRepository creates a new SQLite-backed user repository
func NewSQLiteUserRepository(db *sqlx.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *SQLiteUserRepository) GetDB() *sqlx.DB {
	return r.db
}

func (r *SQLiteUserRepository) CreateUser(
	ctx context.Context,
	username, password, fullName, email, role string,
) (bool, error) {
	if role == "" {
		role = models.RoleUser
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO users (username, hashed_password, full_name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	// The UNIQUE constraint on username is the duplicate check; racing
	// registrations cannot both pass a separate existence lookup.
	_, err = r.db.ExecContext(ctx, query,
		username, string(hashedPassword), fullName, email, role, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// isUniqueViolation reports whether the error is a SQLITE_CONSTRAINT_UNIQUE
// failure. The driver does not export a sentinel for it, so match the
// message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteUserRepository) GetUser(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = ?`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *SQLiteUserRepository) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := r.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	// Unknown user and wrong password are indistinguishable to the caller.
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, nil
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE username = ?`, now, username)
	if err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return user, nil
}

func (r *SQLiteUserRepository) Bootstrap(ctx context.Context) error {
	existing, err := r.GetUser(ctx, bootstrapUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	_, err = r.CreateUser(ctx, bootstrapUsername, bootstrapPassword,
		"Admin User", "admin@example.com", models.RoleAdmin)
	return err
}

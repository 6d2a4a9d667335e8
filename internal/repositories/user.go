package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/models"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

// UserRepository implements [models.Repository] for [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	user.SetSequence(sequence)

	id := shared.GenerateID()
	user.SetID(id)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (
			id, sequence, email, name, avatar_url, membership,
			points, points_reset_date, last_sign_in_date, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var avatarURL any = user.AvatarURL()
	if avatarURL == "" {
		avatarURL = nil
	}

	var lastSignIn any
	if t := user.LastSignInDate(); t != nil {
		lastSignIn = *t
	}

	_, err = r.db.Exec(query,
		id,
		sequence,
		user.Email(),
		user.Name(),
		avatarURL,
		user.Membership(),
		user.Points(),
		user.PointsResetDate(),
		lastSignIn,
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `
		SELECT id, sequence, email, name, avatar_url, membership,
		       points, points_reset_date, last_sign_in_date,
		       created_at, updated_at, deleted_at
		FROM users
		WHERE id = ? AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByEmail retrieves a user by email, excluding soft-deleted users
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, sequence, email, name, avatar_url, membership,
		       points, points_reset_date, last_sign_in_date,
		       created_at, updated_at, deleted_at
		FROM users
		WHERE email = ? AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRow(query, email), email)
}

func (r *UserRepository) scanOne(row *sql.Row, key string) (*models.User, error) {
	var (
		userID     string
		sequence   int
		email      string
		name       string
		avatarURL  sql.NullString
		membership string
		points     int
		resetDate  time.Time
		lastSignIn sql.NullTime
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&userID, &sequence, &email, &name, &avatarURL, &membership,
		&points, &resetDate, &lastSignIn, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user := models.NewUser(sequence, email, name, points)
	user.SetID(userID)
	user.SetMembership(membership)
	user.SetResetDate(resetDate)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if avatarURL.Valid {
		user.SetAvatarURL(avatarURL.String)
	}
	if lastSignIn.Valid {
		user.SetLastSignIn(&lastSignIn.Time)
	}
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}

	return user, nil
}

// Update modifies an existing user in the database.
//
// The points column is deliberately excluded: balance mutation goes through
// [PointsLedger] only.
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET email = ?, name = ?, avatar_url = ?, membership = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	var avatarURL any = user.AvatarURL()
	if avatarURL == "" {
		avatarURL = nil
	}

	result, err := r.db.Exec(query, user.Email(), user.Name(), avatarURL, user.Membership(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found or already deleted: %s", user.ID())
	}

	return nil
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all users matching the given criteria, excluding soft-deleted users
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `
		SELECT id, sequence, email, name, avatar_url, membership,
		       points, points_reset_date, last_sign_in_date,
		       created_at, updated_at, deleted_at
		FROM users
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var (
			userID     string
			sequence   int
			email      string
			name       string
			avatarURL  sql.NullString
			membership string
			points     int
			resetDate  time.Time
			lastSignIn sql.NullTime
			createdAt  time.Time
			updatedAt  time.Time
			deletedAt  sql.NullTime
		)

		err := rows.Scan(&userID, &sequence, &email, &name, &avatarURL, &membership,
			&points, &resetDate, &lastSignIn, &createdAt, &updatedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		user := models.NewUser(sequence, email, name, points)
		user.SetID(userID)
		user.SetMembership(membership)
		user.SetResetDate(resetDate)
		user.SetCreatedAt(createdAt)
		user.SetUpdatedAt(updatedAt)
		if avatarURL.Valid {
			user.SetAvatarURL(avatarURL.String)
		}
		if lastSignIn.Valid {
			user.SetLastSignIn(&lastSignIn.Time)
		}
		if deletedAt.Valid {
			user.SetDeletedAt(&deletedAt.Time)
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// Upsert creates the user on first sign-in or refreshes profile fields on
// subsequent sign-ins. New accounts are seeded with the given point balance.
func (r *UserRepository) Upsert(email, name, avatarURL string, seedPoints int) (*models.User, error) {
	existing, err := r.GetByEmail(email)
	if err == nil {
		if name != "" {
			existing.SetName(name)
		}
		if avatarURL != "" {
			existing.SetAvatarURL(avatarURL)
		}
		if err := r.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if name == "" {
		name = "未命名用户"
	}
	user := models.NewUser(0, email, name, seedPoints)
	user.SetAvatarURL(avatarURL)
	if err := r.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

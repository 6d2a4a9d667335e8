package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/models"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User", 100)

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
		if user.Sequence() == 0 {
			t.Error("user sequence should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User", 100)
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		got, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Email() != "test@example.com" || got.Name() != "Test User" {
			t.Errorf("got user %s <%s>", got.Name(), got.Email())
		}
		if got.Points() != 100 {
			t.Errorf("points = %d, want seeded 100", got.Points())
		}
		if got.Membership() != "free" {
			t.Errorf("membership = %q, want free", got.Membership())
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "by-email@example.com", "Email User", 100)
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		got, err := repo.GetByEmail("by-email@example.com")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if got.ID() != user.ID() {
			t.Errorf("ID = %s, want %s", got.ID(), user.ID())
		}

		if _, err := repo.GetByEmail("missing@example.com"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("error = %v, want %v", err, shared.ErrUserNotFound)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Old Name", 100)
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		user.SetName("New Name")
		user.SetAvatarURL("https://example.com/avatar.png")
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		got, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if got.Name() != "New Name" {
			t.Errorf("name = %q, want New Name", got.Name())
		}
		if got.AvatarURL() != "https://example.com/avatar.png" {
			t.Errorf("avatar = %q", got.AvatarURL())
		}
	})

	t.Run("UpdateDoesNotTouchPoints", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		ledger := NewPointsLedger(db)
		user := models.NewUser(0, "test@example.com", "Test User", 100)
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if err := ledger.Debit(user.ID(), 30); err != nil {
			t.Fatalf("failed to debit: %v", err)
		}

		// A profile save carrying a stale in-memory balance must not
		// clobber the ledger.
		user.SetPoints(100)
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		balance, err := ledger.Balance(user.ID())
		if err != nil {
			t.Fatalf("failed to read balance: %v", err)
		}
		if balance != 70 {
			t.Errorf("balance = %d, want 70", balance)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User", 100)
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		if _, err := repo.Get(user.ID()); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("error = %v, want %v", err, shared.ErrUserNotFound)
		}

		if err := repo.Delete(user.ID()); err == nil {
			t.Error("expected error deleting an already deleted user")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			if err := repo.Create(models.NewUser(0, email, "User", 100)); err != nil {
				t.Fatalf("failed to create %s: %v", email, err)
			}
		}

		users, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 3 {
			t.Fatalf("got %d users, want 3", len(users))
		}
		for i := 1; i < len(users); i++ {
			if users[i].Sequence() <= users[i-1].Sequence() {
				t.Errorf("users not ordered by sequence: %d then %d", users[i-1].Sequence(), users[i].Sequence())
			}
		}

		filtered, err := repo.List(map[string]any{"email": "b@example.com"})
		if err != nil {
			t.Fatalf("failed to list filtered users: %v", err)
		}
		if len(filtered) != 1 || filtered[0].Email() != "b@example.com" {
			t.Errorf("filtered = %d users", len(filtered))
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)

		created, err := repo.Upsert("oauth@example.com", "OAuth User", "https://example.com/a.png", 100)
		if err != nil {
			t.Fatalf("failed to upsert new user: %v", err)
		}
		if created.Points() != 100 {
			t.Errorf("seeded points = %d, want 100", created.Points())
		}

		again, err := repo.Upsert("oauth@example.com", "Renamed", "", 100)
		if err != nil {
			t.Fatalf("failed to upsert existing user: %v", err)
		}
		if again.ID() != created.ID() {
			t.Errorf("upsert created a second account: %s vs %s", again.ID(), created.ID())
		}
		if again.Name() != "Renamed" {
			t.Errorf("name = %q, want Renamed", again.Name())
		}

		users, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(users) != 1 {
			t.Errorf("got %d users, want 1", len(users))
		}
	})

	t.Run("UpsertDefaultsName", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user, err := repo.Upsert("anon@example.com", "", "", 100)
		if err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		if user.Name() != "未命名用户" {
			t.Errorf("name = %q, want default", user.Name())
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := NextSequence(db, "users")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "users")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	if second != first+1 {
		t.Errorf("sequence did not increment: %d then %d", first, second)
	}
}

//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
)

func mustSaveUser(t *testing.T, repo *UserRepo, tgID int64, username string) *model.User {
	t.Helper()
	u, err := model.NewUser(tgID, username, "")
	if err != nil {
		t.Fatalf("model.NewUser() failed: %v", err)
	}
	if err := repo.Save(context.Background(), nil, u); err != nil {
		t.Fatalf("Failed to save user %d: %v", tgID, err)
	}
	return u
}

func TestUserRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewUserRepo(testPool)
	ctx := context.Background()

	t.Run("should perform full CRUD cycle", func(t *testing.T) {
		cleanup(t)

		saved := mustSaveUser(t, repo, 123456789, "integration_user")
		if saved.ID == 0 {
			t.Fatal("expected Save to write back the generated id")
		}

		found, err := repo.FindByTelegramID(ctx, nil, 123456789)
		if err != nil {
			t.Fatalf("Failed to find user by telegram ID: %v", err)
		}
		if found.ID != saved.ID {
			t.Errorf("Expected user ID %d, got %d", saved.ID, found.ID)
		}
		if found.Username != "integration_user" {
			t.Errorf("Expected username 'integration_user', got '%s'", found.Username)
		}

		found.Username = "updated_user"
		found.PurchasedAnalyses = 7
		if err := repo.Save(ctx, nil, found); err != nil {
			t.Fatalf("Failed to update user: %v", err)
		}

		updated, err := repo.FindByID(ctx, nil, found.ID)
		if err != nil {
			t.Fatalf("Failed to find user by ID: %v", err)
		}
		if updated.Username != "updated_user" {
			t.Errorf("Expected username 'updated_user', got '%s'", updated.Username)
		}
		if updated.PurchasedAnalyses != 7 {
			t.Errorf("Expected 7 purchased analyses, got %d", updated.PurchasedAnalyses)
		}
	})

	t.Run("should reject a duplicate telegram id", func(t *testing.T) {
		cleanup(t)

		mustSaveUser(t, repo, 111, "first")
		dup, _ := model.NewUser(111, "second", "")
		err := repo.Save(ctx, nil, dup)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists for duplicate telegram_id, got %v", err)
		}
	})

	t.Run("should report not found for unknown ids", func(t *testing.T) {
		cleanup(t)

		if _, err := repo.FindByID(ctx, nil, 9999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("FindByID: expected ErrNotFound, got %v", err)
		}
		if _, err := repo.FindByTelegramID(ctx, nil, 9999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("FindByTelegramID: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should list and count users", func(t *testing.T) {
		cleanup(t)

		mustSaveUser(t, repo, 111, "user1")
		mustSaveUser(t, repo, 222, "user2")
		mustSaveUser(t, repo, 333, "user3")

		n, err := repo.CountUsers(ctx, nil)
		if err != nil {
			t.Fatalf("CountUsers failed: %v", err)
		}
		if n != 3 {
			t.Errorf("expected count 3, got %d", n)
		}

		page, err := repo.List(ctx, nil, 1, 2)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(page) != 2 {
			t.Fatalf("expected 2 users in page, got %d", len(page))
		}
		if page[0].Username != "user2" {
			t.Errorf("expected offset to skip user1, got '%s'", page[0].Username)
		}
	})

	t.Run("should increment total analyses", func(t *testing.T) {
		cleanup(t)

		u := mustSaveUser(t, repo, 111, "counter")
		for i := 0; i < 3; i++ {
			if err := repo.IncrementTotalAnalyses(ctx, nil, u.ID); err != nil {
				t.Fatalf("IncrementTotalAnalyses failed: %v", err)
			}
		}
		got, err := repo.FindByID(ctx, nil, u.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.TotalAnalyses != 3 {
			t.Errorf("expected total_analyses 3, got %d", got.TotalAnalyses)
		}
	})

	t.Run("should round-trip the daily reset date", func(t *testing.T) {
		cleanup(t)

		u := mustSaveUser(t, repo, 111, "quota")
		u.DailyAnalysesUsed = 2
		u.DailyResetDate = model.Today(time.Now().Add(-48 * time.Hour))
		if err := repo.Save(ctx, nil, u); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, u.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !got.DailyResetDate.Before(model.Today(time.Now())) {
			t.Error("expected stored reset date to be before today")
		}
		if !got.ResetDailyIfStale(time.Now()) {
			t.Error("expected a stale reset date to trigger a reset")
		}
		if got.DailyAnalysesUsed != 0 {
			t.Errorf("expected counter zeroed after reset, got %d", got.DailyAnalysesUsed)
		}
	})
}

func TestSchemaSeed_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	cleanup(t)

	// Applying the schema twice must leave exactly one system user.
	for i := 0; i < 2; i++ {
		if _, err := testPool.Exec(ctx, testSchema); err != nil {
			t.Fatalf("apply schema (pass %d): %v", i+1, err)
		}
	}

	var n int
	err := testPool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE telegram_id = $1`, model.SystemTelegramID).Scan(&n)
	if err != nil {
		t.Fatalf("count system users: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly one system user, got %d", n)
	}
}

func TestSchemaDefaults_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	cleanup(t)

	var (
		userID    int64
		dailyUsed int
		active    bool
	)
	err := testPool.QueryRow(ctx,
		`INSERT INTO users (telegram_id) VALUES (555) RETURNING id, daily_analyses_used, is_active`).
		Scan(&userID, &dailyUsed, &active)
	if err != nil {
		t.Fatalf("insert minimal user: %v", err)
	}
	if dailyUsed != 0 {
		t.Errorf("expected daily_analyses_used default 0, got %d", dailyUsed)
	}
	if !active {
		t.Error("expected is_active default true")
	}

	var status string
	err = testPool.QueryRow(ctx,
		`INSERT INTO payments (user_id, method, amount_cents, wallet_address, analyses_purchased)
		 VALUES ($1, 'ton', 499, 'EQtest', 10) RETURNING status`, userID).Scan(&status)
	if err != nil {
		t.Fatalf("insert minimal payment: %v", err)
	}
	if status != string(model.PaymentStatusPending) {
		t.Errorf("expected payments.status default 'pending', got %q", status)
	}
}

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/groupcar/groupcar-server/internal/domain"
	"gorm.io/gorm"
)

func TestUserFindByUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seeded := seedUser(t, db, "alice")

	found, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if found.ID != seeded.ID {
		t.Fatalf("expected user %d, got %d", seeded.ID, found.ID)
	}

	if _, err := repo.FindByUsername(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserCreateRejectsDuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seedUser(t, db, "alice")

	err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice2@example.com", PasswordHash: "x"})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected duplicated key error, got %v", err)
	}
}

func TestUserDeleteHidesUserFromLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	seeded := seedUser(t, db, "alice")

	if err := repo.Delete(ctx, seeded.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Soft delete: the row stays but every lookup misses, which is what
	// cuts off a still-valid token at the next request.
	if _, err := repo.FindByID(ctx, seeded.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound by id after delete, got %v", err)
	}
	if _, err := repo.FindByUsername(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound by username after delete, got %v", err)
	}
}

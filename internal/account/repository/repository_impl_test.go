package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/mina/internal/account/domain"
	accountrepo "github.com/smallbiznis/mina/internal/account/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_account_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		phone TEXT NOT NULL UNIQUE,
		credits_remaining REAL NOT NULL DEFAULT 30.0,
		subscription_active INTEGER NOT NULL DEFAULT 0,
		subscription_expiry TIMESTAMP,
		provider_customer_ref TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newUser(t *testing.T, node *snowflake.Node, phone string, credits float64) *accountdomain.User {
	t.Helper()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &accountdomain.User{
		ID:               node.Generate(),
		Phone:            phone,
		CreditsRemaining: credits,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// A losing first-contact insert must not surface a constraint error: on
// postgres that would abort the whole transaction and make the follow-up
// locked re-read fail too. The insert is a silent no-op and the winner's row
// stays intact.
func TestInsertExistingPhoneIsNoOp(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := accountrepo.Provide()

	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	winner := newUser(t, node, "whatsapp:+919876543210", 12.5)
	if err := repo.Insert(ctx, db, winner); err != nil {
		t.Fatalf("insert winner: %v", err)
	}

	loser := newUser(t, node, "whatsapp:+919876543210", 30.0)
	if err := repo.Insert(ctx, db, loser); err != nil {
		t.Fatalf("conflicting insert must be a no-op, got %v", err)
	}

	stored, err := repo.FindByPhone(ctx, db, "whatsapp:+919876543210")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected stored user")
	}
	if stored.ID != winner.ID {
		t.Fatalf("expected winner row %d to survive, got %d", winner.ID, stored.ID)
	}
	if stored.CreditsRemaining != 12.5 {
		t.Fatalf("winner balance clobbered: %v", stored.CreditsRemaining)
	}
}

func TestActivateSubscriptionKeepsCustomerRef(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := accountrepo.Provide()

	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	if err := repo.Insert(ctx, db, newUser(t, node, "whatsapp:+919876543210", 30.0)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ref := "cust_42"
	expiry := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.ActivateSubscription(ctx, db, "whatsapp:+919876543210", expiry, &ref); err != nil {
		t.Fatalf("activate: %v", err)
	}
	// A later event without a customer ref must not blank the stored one.
	if err := repo.ActivateSubscription(ctx, db, "whatsapp:+919876543210", expiry.Add(24*time.Hour), nil); err != nil {
		t.Fatalf("re-activate: %v", err)
	}

	stored, err := repo.FindByPhone(ctx, db, "whatsapp:+919876543210")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.SubscriptionActive {
		t.Fatalf("expected active subscription")
	}
	if stored.ProviderCustomerRef == nil || *stored.ProviderCustomerRef != "cust_42" {
		t.Fatalf("customer ref lost: %v", stored.ProviderCustomerRef)
	}
}

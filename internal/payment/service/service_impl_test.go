package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountrepo "github.com/smallbiznis/mina/internal/account/repository"
	"github.com/smallbiznis/mina/internal/clock"
	"github.com/smallbiznis/mina/internal/config"
	paymentdomain "github.com/smallbiznis/mina/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/mina/internal/payment/repository"
	paymentservice "github.com/smallbiznis/mina/internal/payment/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeProvider struct {
	verifyOK bool
	event    *paymentdomain.Event
	link     *paymentdomain.Link
}

func (f *fakeProvider) VerifySignature(payload []byte, headerSignature string) bool {
	return f.verifyOK
}

func (f *fakeProvider) ParseEvent(payload []byte) (*paymentdomain.Event, error) {
	return f.event, nil
}

func (f *fakeProvider) CreatePaymentLink(ctx context.Context, contact string, amount int64, currency, description string) (*paymentdomain.Link, error) {
	if f.link == nil {
		return nil, paymentdomain.ErrLinkUnavailable
	}
	return f.link, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_pay_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			credits_remaining REAL NOT NULL DEFAULT 30.0,
			subscription_active INTEGER NOT NULL DEFAULT 0,
			subscription_expiry TIMESTAMP,
			provider_customer_ref TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE payments (
			id INTEGER PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			phone TEXT,
			amount INTEGER NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'INR',
			status TEXT NOT NULL DEFAULT 'created',
			raw_payload TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock, provider paymentdomain.Provider) paymentdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return paymentservice.NewService(paymentservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        paymentrepo.Provide(),
		AccountRepo: accountrepo.Provide(),
		Provider:    provider,
		Cfg: config.Config{
			Billing: config.BillingConfig{
				DefaultFreeMinutes: 30.0,
				SubscriptionDays:   30,
				SubscriptionPaise:  49900,
				Currency:           "INR",
			},
		},
	})
}

func subscriptionState(t *testing.T, db *gorm.DB, phone string) (bool, *time.Time) {
	t.Helper()
	var row struct {
		SubscriptionActive bool
		SubscriptionExpiry *time.Time
	}
	if err := db.Raw(
		`SELECT subscription_active, subscription_expiry FROM users WHERE phone = ?`,
		phone,
	).Scan(&row).Error; err != nil {
		t.Fatalf("read subscription: %v", err)
	}
	return row.SubscriptionActive, row.SubscriptionExpiry
}

func TestReconcileCapturedActivates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(t, db, clock.NewFakeClock(now), &fakeProvider{})

	res, err := svc.Reconcile(ctx, paymentdomain.Event{
		TransactionID: "pay_abc",
		Contact:       "919876543210",
		Amount:        49900,
		RawStatus:     "captured",
		RawPayload:    []byte(`{"event":"payment.captured"}`),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !res.Activated {
		t.Fatalf("expected activation on created→captured")
	}
	if res.NewStatus != "captured" {
		t.Fatalf("new status %q", res.NewStatus)
	}

	active, expiry := subscriptionState(t, db, "whatsapp:+919876543210")
	if !active {
		t.Fatalf("subscription must be active")
	}
	want := now.Add(30 * 24 * time.Hour)
	if expiry == nil || !expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", expiry, want)
	}
}

func TestReconcileReplayActivatesOnce(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk, &fakeProvider{})

	event := paymentdomain.Event{
		TransactionID: "pay_replay",
		Contact:       "919876543210",
		Amount:        49900,
		RawStatus:     "captured",
		RawPayload:    []byte(`{}`),
	}

	first, err := svc.Reconcile(ctx, event)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if !first.Activated {
		t.Fatalf("first delivery must activate")
	}
	_, firstExpiry := subscriptionState(t, db, "whatsapp:+919876543210")

	clk.Advance(48 * time.Hour)
	second, err := svc.Reconcile(ctx, event)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if second.Activated {
		t.Fatalf("replay must not re-activate")
	}
	if second.PrevStatus != "captured" {
		t.Fatalf("prev status %q", second.PrevStatus)
	}

	_, secondExpiry := subscriptionState(t, db, "whatsapp:+919876543210")
	if !firstExpiry.Equal(*secondExpiry) {
		t.Fatalf("expiry extended twice: %v then %v", firstExpiry, secondExpiry)
	}
}

func TestReconcileOutOfOrderSingleActivation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk, &fakeProvider{})

	statuses := []string{"authorized", "captured", "authorized"}
	activations := 0
	for _, status := range statuses {
		res, err := svc.Reconcile(ctx, paymentdomain.Event{
			TransactionID: "pay_ooo",
			Contact:       "919876543210",
			Amount:        49900,
			RawStatus:     status,
			RawPayload:    []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("reconcile %s: %v", status, err)
		}
		if res.Activated {
			activations++
		}
	}
	if activations != 1 {
		t.Fatalf("expected exactly one activation, got %d", activations)
	}
}

func TestReconcileFailedDoesNotActivate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()), &fakeProvider{})

	res, err := svc.Reconcile(ctx, paymentdomain.Event{
		TransactionID: "pay_failed",
		Contact:       "919876543210",
		RawStatus:     "failed",
		RawPayload:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Activated {
		t.Fatalf("failed status must not activate")
	}

	var users int64
	if err := db.Raw(`SELECT COUNT(1) FROM users WHERE subscription_active = 1`).Scan(&users).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if users != 0 {
		t.Fatalf("no subscription should exist")
	}
}

func TestReconcileUnresolvableIdentityRecordsPayment(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()), &fakeProvider{})

	res, err := svc.Reconcile(ctx, paymentdomain.Event{
		TransactionID: "pay_anon",
		RawStatus:     "captured",
		Amount:        49900,
		RawPayload:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("reconcile must not raise on missing identity: %v", err)
	}
	if res.Phone != nil {
		t.Fatalf("expected nil phone")
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM payments WHERE transaction_id = 'pay_anon' AND phone IS NULL`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("payment must be recorded with null phone for manual reconciliation")
	}
}

func TestWebhookResolvesPhoneFromPaymentLink(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	provider := &fakeProvider{
		link: &paymentdomain.Link{
			TransactionID: "plink_1",
			ShortURL:      "https://rzp.io/l/x",
			Amount:        49900,
			Status:        "created",
		},
	}
	svc := newService(t, db, clk, provider)

	if _, err := svc.CreateLink(ctx, "whatsapp:+919876543210"); err != nil {
		t.Fatalf("create link: %v", err)
	}

	// Webhook for the same link id carries no contact; phone must come from
	// the recorded payment row.
	res, err := svc.Reconcile(ctx, paymentdomain.Event{
		TransactionID: "plink_1",
		Amount:        49900,
		RawStatus:     "paid",
		RawPayload:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !res.Activated {
		t.Fatalf("created→paid must activate")
	}
	if res.Phone == nil || *res.Phone != "whatsapp:+919876543210" {
		t.Fatalf("phone = %v", res.Phone)
	}
	if res.PrevStatus != "created" {
		t.Fatalf("prev status %q", res.PrevStatus)
	}
}

func TestIngestWebhookRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()), &fakeProvider{verifyOK: false})

	_, err := svc.IngestWebhook(ctx, []byte(`{}`), "bad")
	if err != paymentdomain.ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM payments`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("unverified event must not be processed")
	}
}

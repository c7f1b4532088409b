package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/mina/internal/account/domain"
	"github.com/smallbiznis/mina/internal/clock"
	"github.com/smallbiznis/mina/internal/config"
	"github.com/smallbiznis/mina/internal/identity"
	paymentdomain "github.com/smallbiznis/mina/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        paymentdomain.Repository
	AccountRepo accountdomain.Repository
	Provider    paymentdomain.Provider
	Cfg         config.Config
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        paymentdomain.Repository
	accountRepo accountdomain.Repository
	provider    paymentdomain.Provider
	billing     config.BillingConfig
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		provider:    p.Provider,
		billing:     p.Cfg.Billing,
	}
}

// IngestWebhook verifies the provider signature and reconciles the decoded
// event. Events that fail verification are rejected outright, never processed
// as if valid.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, headerSignature string) (paymentdomain.ReconcileResult, error) {
	if !s.provider.VerifySignature(payload, headerSignature) {
		s.log.Warn("webhook signature verification failed")
		return paymentdomain.ReconcileResult{}, paymentdomain.ErrInvalidSignature
	}

	event, err := s.provider.ParseEvent(payload)
	if err != nil {
		return paymentdomain.ReconcileResult{}, err
	}
	if event == nil {
		// Event type this core does not act on.
		return paymentdomain.ReconcileResult{}, nil
	}
	if event.RawPayload == nil {
		event.RawPayload = payload
	}
	return s.Reconcile(ctx, *event)
}

// Reconcile upserts the payment record keyed by transaction id and activates
// the subscription exactly on the transition into the paid set. Replays and
// out-of-order deliveries of an already-paid transaction report
// Activated=false and change nothing else.
func (s *Service) Reconcile(ctx context.Context, event paymentdomain.Event) (paymentdomain.ReconcileResult, error) {
	transactionID := strings.TrimSpace(event.TransactionID)
	if transactionID == "" {
		return paymentdomain.ReconcileResult{}, paymentdomain.ErrInvalidEvent
	}
	newStatus := strings.ToLower(strings.TrimSpace(event.RawStatus))
	if newStatus == "" {
		return paymentdomain.ReconcileResult{}, paymentdomain.ErrInvalidEvent
	}

	var res paymentdomain.ReconcileResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByTransactionIDForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		prevStatus := ""
		var phone *string
		createdAt := s.clock.Now()
		if existing != nil {
			prevStatus = existing.Status
			phone = existing.Phone
			createdAt = existing.CreatedAt
		}
		if phone == nil {
			if normalized := identity.Normalize(event.Contact); normalized != "" {
				phone = &normalized
			}
		}

		record := &paymentdomain.Payment{
			ID:            s.genID.Generate(),
			TransactionID: transactionID,
			Phone:         phone,
			Amount:        event.Amount,
			Currency:      s.currencyOr(event.Currency),
			Status:        newStatus,
			RawPayload:    datatypes.JSON(event.RawPayload),
			CreatedAt:     createdAt,
			UpdatedAt:     s.clock.Now(),
		}
		if existing != nil {
			record.ID = existing.ID
		}
		if err := s.repo.Upsert(ctx, tx, record); err != nil {
			return err
		}

		activated := paymentdomain.IsPaidStatus(newStatus) && !paymentdomain.IsPaidStatus(prevStatus)
		if activated && phone != nil {
			if err := s.activate(ctx, tx, *phone, event.CustomerRef); err != nil {
				return err
			}
		}

		res = paymentdomain.ReconcileResult{
			Phone:      phone,
			PrevStatus: prevStatus,
			NewStatus:  newStatus,
			Activated:  activated,
		}
		return nil
	})
	if err != nil {
		return paymentdomain.ReconcileResult{}, err
	}

	s.log.Info("payment reconciled",
		zap.String("transaction_id", transactionID),
		zap.String("prev_status", res.PrevStatus),
		zap.String("new_status", res.NewStatus),
		zap.Bool("activated", res.Activated),
	)
	return res, nil
}

// CreateLink issues a payment link for the user and records the pending
// payment keyed by the link id, so the later webhook can resolve the phone.
func (s *Service) CreateLink(ctx context.Context, phone string) (*paymentdomain.Link, error) {
	phone = identity.Normalize(phone)
	link, err := s.provider.CreatePaymentLink(ctx,
		identity.Digits(phone),
		s.billing.SubscriptionPaise,
		s.billing.Currency,
		"mina subscription",
	)
	if err != nil {
		return nil, err
	}

	status := strings.ToLower(strings.TrimSpace(link.Status))
	if status == "" {
		status = "created"
	}
	now := s.clock.Now()
	record := &paymentdomain.Payment{
		ID:            s.genID.Generate(),
		TransactionID: link.TransactionID,
		Phone:         &phone,
		Amount:        link.Amount,
		Currency:      s.billing.Currency,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return nil, err
	}
	return link, nil
}

// activate flips the subscription on, creating the account with the default
// grant when the payment arrives before any voice note did. The insert is
// conflict-tolerant, so a racing first contact cannot abort this
// transaction before ActivateSubscription runs.
func (s *Service) activate(ctx context.Context, tx *gorm.DB, phone string, customerRef *string) error {
	user, err := s.accountRepo.FindByPhoneForUpdate(ctx, tx, phone)
	if err != nil {
		return err
	}
	if user == nil {
		now := s.clock.Now()
		fresh := &accountdomain.User{
			ID:               s.genID.Generate(),
			Phone:            phone,
			CreditsRemaining: s.billing.DefaultFreeMinutes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.accountRepo.Insert(ctx, tx, fresh); err != nil {
			return err
		}
	}

	expiry := s.clock.Now().Add(time.Duration(s.billing.SubscriptionDays) * 24 * time.Hour)
	return s.accountRepo.ActivateSubscription(ctx, tx, phone, expiry, customerRef)
}

func (s *Service) currencyOr(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return s.billing.Currency
	}
	return currency
}

package service

import (
	"context"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/mina/internal/account/domain"
	"github.com/smallbiznis/mina/internal/clock"
	"github.com/smallbiznis/mina/internal/config"
	reservationdomain "github.com/smallbiznis/mina/internal/reservation/domain"
	workitemdomain "github.com/smallbiznis/mina/internal/workitem/domain"
	"github.com/smallbiznis/mina/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	AccountRepo  accountdomain.Repository
	WorkItemRepo workitemdomain.Repository
	Cfg          config.Config
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	accountRepo  accountdomain.Repository
	workItemRepo workitemdomain.Repository
	freeMinutes  float64
}

func NewService(p Params) reservationdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("reservation"),
		genID:        p.GenID,
		clock:        p.Clock,
		accountRepo:  p.AccountRepo,
		workItemRepo: p.WorkItemRepo,
		freeMinutes:  p.Cfg.Billing.DefaultFreeMinutes,
	}
}

// Reserve decides atomically whether to accept and charge one voice note.
// The whole decision runs in a single transaction under a row lock on the
// user, so two concurrent notes from the same user never pass a stale balance
// check. The unique index on work_items.idempotency_key is the authoritative
// dedupe: a violation rolls the transaction back and reports Duplicate.
func (s *Service) Reserve(ctx context.Context, req reservationdomain.ReserveRequest) (reservationdomain.Result, error) {
	if strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.MediaURL) == "" ||
		strings.TrimSpace(req.IdempotencyKey) == "" {
		return reservationdomain.Result{}, reservationdomain.ErrInvalidRequest
	}
	minutes := req.MinutesNeeded
	if minutes < 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return reservationdomain.Result{}, reservationdomain.ErrInvalidRequest
	}

	var res reservationdomain.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.lockOrCreateUser(ctx, tx, req.Phone)
		if err != nil {
			return err
		}

		toDeduct := minutes
		if user.HasActiveSubscription(s.clock.Now()) {
			toDeduct = 0
		}

		if toDeduct > 0 && user.CreditsRemaining < toDeduct {
			res = reservationdomain.Result{
				Outcome:          reservationdomain.OutcomeRejected,
				RemainingMinutes: user.CreditsRemaining,
				Reason:           "insufficient_credits",
			}
			return reservationdomain.ErrInsufficientCredits
		}

		remaining := user.CreditsRemaining - toDeduct
		if toDeduct > 0 {
			if err := s.accountRepo.UpdateBalance(ctx, tx, user.Phone, remaining); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		item := &workitemdomain.WorkItem{
			ID:               s.genID.Generate(),
			Phone:            user.Phone,
			MediaURL:         req.MediaURL,
			MediaContentType: req.MediaContentType,
			IdempotencyKey:   req.IdempotencyKey,
			MinutesCharged:   toDeduct,
			Status:           workitemdomain.StatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.workItemRepo.Insert(ctx, tx, item); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return reservationdomain.ErrDuplicateDelivery
			}
			return err
		}

		res = reservationdomain.Result{
			Outcome:          reservationdomain.OutcomeAccepted,
			WorkItemID:       item.ID,
			MinutesCharged:   toDeduct,
			RemainingMinutes: remaining,
		}
		return nil
	})

	switch {
	case err == nil:
		s.log.Info("reservation accepted",
			zap.String("phone", req.Phone),
			zap.Float64("minutes_charged", res.MinutesCharged),
			zap.Float64("remaining", res.RemainingMinutes),
		)
		return res, nil
	case err == reservationdomain.ErrInsufficientCredits:
		s.log.Info("reservation rejected",
			zap.String("phone", req.Phone),
			zap.Float64("minutes_needed", minutes),
			zap.Float64("remaining", res.RemainingMinutes),
		)
		return res, nil
	case err == reservationdomain.ErrDuplicateDelivery:
		return reservationdomain.Result{Outcome: reservationdomain.OutcomeDuplicate}, nil
	default:
		return reservationdomain.Result{}, err
	}
}

// lockOrCreateUser takes the pessimistic row lock on the user, creating the
// row with the default free-minutes grant when absent. The insert is
// conflict-tolerant: when a concurrent first contact wins the race it is a
// no-op, and the transaction stays usable on postgres (a raw unique
// violation would abort it). The locked re-read returns whichever row
// landed.
func (s *Service) lockOrCreateUser(ctx context.Context, tx *gorm.DB, phone string) (*accountdomain.User, error) {
	user, err := s.accountRepo.FindByPhoneForUpdate(ctx, tx, phone)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	now := s.clock.Now()
	fresh := &accountdomain.User{
		ID:               s.genID.Generate(),
		Phone:            phone,
		CreditsRemaining: s.freeMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.accountRepo.Insert(ctx, tx, fresh); err != nil {
		return nil, err
	}
	return s.accountRepo.FindByPhoneForUpdate(ctx, tx, phone)
}

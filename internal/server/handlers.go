package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mina/internal/dedupe"
	"github.com/smallbiznis/mina/internal/identity"
	"github.com/smallbiznis/mina/internal/observability/metrics"
	"github.com/smallbiznis/mina/internal/queue"
	reservationdomain "github.com/smallbiznis/mina/internal/reservation/domain"
	"go.uber.org/zap"
)

const guidanceReply = "Hi! Send me a voice note and I'll reply with meeting minutes."

const acceptedReply = "Got it! Your minutes are on the way. %.1f free minutes left."

const acceptedSubscriberReply = "Got it! Your minutes are on the way."

// handleInboundMessage receives the messaging provider's webhook for one
// inbound WhatsApp message. The response is always 200 for handled business
// outcomes so the provider does not retry; user-facing feedback goes out as
// a separate message.
func (s *Server) handleInboundMessage(c *gin.Context) {
	ctx := c.Request.Context()

	phone := identity.Normalize(c.PostForm("From"))
	if phone == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	numMedia, _ := strconv.Atoi(c.DefaultPostForm("NumMedia", "0"))
	mediaURL := strings.TrimSpace(c.PostForm("MediaUrl0"))
	if numMedia == 0 || mediaURL == "" {
		s.reply(c, phone, guidanceReply)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	key := dedupe.KeyFor(c.PostForm("MessageSid"), mediaURL)
	if dup, err := s.ledger.IsDuplicate(ctx, key); err == nil && dup {
		metrics.ReservationsTotal.WithLabelValues(string(reservationdomain.OutcomeDuplicate)).Inc()
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	estimate := s.estimator.EstimateMinutes(ctx, mediaURL)
	if estimate <= 0 {
		estimate = s.cfg.Billing.FallbackEstimateMin
	}

	var contentType *string
	if ct := strings.TrimSpace(c.PostForm("MediaContentType0")); ct != "" {
		contentType = &ct
	}

	res, err := s.reservations.Reserve(ctx, reservationdomain.ReserveRequest{
		Phone:            phone,
		MediaURL:         mediaURL,
		MediaContentType: contentType,
		MinutesNeeded:    estimate,
		IdempotencyKey:   key,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	metrics.ReservationsTotal.WithLabelValues(string(res.Outcome)).Inc()

	switch res.Outcome {
	case reservationdomain.OutcomeAccepted:
		job := queue.Job{
			WorkItemID: res.WorkItemID.Int64(),
			Phone:      phone,
			MediaURL:   mediaURL,
			EnqueuedAt: s.clock.Now(),
		}
		if contentType != nil {
			job.ContentType = *contentType
		}
		if err := s.enqueuer.Enqueue(ctx, job); err != nil {
			// The work item row survives; an operator can re-queue it.
			s.log.Error("enqueue failed",
				zap.Int64("work_item_id", job.WorkItemID), zap.Error(err))
			AbortWithError(c, err)
			return
		}
		if res.MinutesCharged > 0 {
			s.reply(c, phone, fmt.Sprintf(acceptedReply, res.RemainingMinutes))
		} else {
			s.reply(c, phone, acceptedSubscriberReply)
		}
		c.JSON(http.StatusOK, gin.H{
			"status":            "accepted",
			"work_item_id":      res.WorkItemID.String(),
			"minutes_charged":   res.MinutesCharged,
			"remaining_minutes": res.RemainingMinutes,
		})
	case reservationdomain.OutcomeDuplicate:
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	default:
		s.reply(c, phone, s.subscribeMessage(c))
		c.JSON(http.StatusOK, gin.H{
			"status": "rejected",
			"reason": res.Reason,
		})
	}
}

// subscribeMessage builds the out-of-minutes reply with a fresh payment link,
// falling back to the static URL when the provider call fails.
func (s *Server) subscribeMessage(c *gin.Context) string {
	paymentURL := s.cfg.Billing.FallbackPaymentURL

	phone := identity.Normalize(c.PostForm("From"))
	link, err := s.payments.CreateLink(c.Request.Context(), phone)
	if err != nil {
		s.log.Warn("payment link creation failed", zap.String("phone", phone), zap.Error(err))
	} else if link != nil {
		paymentURL = link.ShortURL
	}

	rupees := s.cfg.Billing.SubscriptionPaise / 100
	msg := fmt.Sprintf("You've used up your free minutes. Subscribe for ₹%d/month for unlimited minutes.", rupees)
	if paymentURL != "" {
		msg += " Pay here: " + paymentURL
	}
	return msg
}

// handlePaymentWebhook receives payment provider events. Signature
// verification failures return 400; everything else acknowledges with 200 so
// the provider's retries stay idempotent.
func (s *Server) handlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	res, err := s.payments.IngestWebhook(c.Request.Context(), payload, c.GetHeader("X-Razorpay-Signature"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if res.NewStatus != "" {
		metrics.PaymentEventsTotal.WithLabelValues(res.NewStatus).Inc()
	}
	if res.Activated {
		metrics.SubscriptionActivationsTotal.Inc()
		if res.Phone != nil {
			s.reply(c, *res.Phone, "Payment received! Your subscription is now active. Enjoy unlimited minutes.")
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "activated": res.Activated})
}

func (s *Server) reply(c *gin.Context, phone, body string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.SendMessage(c.Request.Context(), phone, body); err != nil {
		s.log.Warn("outbound reply failed", zap.String("phone", phone), zap.Error(err))
	}
}

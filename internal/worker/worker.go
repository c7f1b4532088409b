// Package worker drains the job queue and turns accepted voice notes into
// delivered meeting minutes.
package worker

import (
	"context"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mina/internal/minutes"
	"github.com/smallbiznis/mina/internal/observability/metrics"
	"github.com/smallbiznis/mina/internal/providers/messaging"
	"github.com/smallbiznis/mina/internal/queue"
	workitemdomain "github.com/smallbiznis/mina/internal/workitem/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Downloader fetches media and reports file durations.
type Downloader interface {
	Download(ctx context.Context, mediaURL, contentType string) (string, error)
	DurationSeconds(path string) (float64, error)
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// Summarizer turns a transcript into structured minutes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (minutes.Minutes, error)
}

const failureReply = "Sorry, we couldn't process your voice note. Please send it again."

// Config bounds each external call the processor makes and controls the
// stale-job sweep.
type Config struct {
	DownloadTimeout   time.Duration
	TranscribeTimeout time.Duration
	SummarizeTimeout  time.Duration
	PollTimeout       time.Duration
	RequeueAfter      time.Duration
	RequeueInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 60 * time.Second
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 120 * time.Second
	}
	if c.SummarizeTimeout <= 0 {
		c.SummarizeTimeout = 60 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	if c.RequeueAfter <= 0 {
		c.RequeueAfter = 10 * time.Minute
	}
	if c.RequeueInterval <= 0 {
		c.RequeueInterval = 5 * time.Minute
	}
	return c
}

const requeueBatchSize = 100

// Processor executes one job at a time. Completion is recorded on the work
// item row, so a crash after MarkDone and before the queue acknowledgement is
// absorbed by the redelivery guard.
type Processor struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        workitemdomain.Repository
	downloader  Downloader
	transcriber Transcriber
	summarizer  Summarizer
	sender      messaging.Sender
	language    string
	cfg         Config
}

func NewProcessor(
	db *gorm.DB,
	log *zap.Logger,
	repo workitemdomain.Repository,
	downloader Downloader,
	transcriber Transcriber,
	summarizer Summarizer,
	sender messaging.Sender,
	language string,
	cfg Config,
) *Processor {
	return &Processor{
		db:          db,
		log:         log.Named("worker"),
		repo:        repo,
		downloader:  downloader,
		transcriber: transcriber,
		summarizer:  summarizer,
		sender:      sender,
		language:    language,
		cfg:         cfg.withDefaults(),
	}
}

// Process handles a single job. A non-nil error leaves the item pending so a
// redelivery can retry it; transcript and summary failures diverge: no
// transcript means retry, no summary means deliver a placeholder.
func (p *Processor) Process(ctx context.Context, job queue.Job) error {
	id := snowflake.ParseInt64(job.WorkItemID)
	item, err := p.repo.FindByID(ctx, p.db, id)
	if err != nil {
		return err
	}
	if item == nil {
		p.log.Warn("job references missing work item", zap.Int64("work_item_id", job.WorkItemID))
		return nil
	}
	if item.Processed() {
		p.log.Info("skipping redelivered job, transcript already set",
			zap.Int64("work_item_id", job.WorkItemID))
		metrics.WorkerJobsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	contentType := job.ContentType
	if item.MediaContentType != nil {
		contentType = *item.MediaContentType
	}

	dctx, cancel := context.WithTimeout(ctx, p.cfg.DownloadTimeout)
	path, err := p.downloader.Download(dctx, item.MediaURL, contentType)
	cancel()
	if err != nil {
		p.log.Error("media download failed", zap.Int64("work_item_id", job.WorkItemID), zap.Error(err))
		p.notify(ctx, item.Phone, failureReply)
		return err
	}
	defer os.Remove(path)

	// Exact duration is informational; minutes were charged at reservation
	// time from the estimate.
	var duration *float64
	if seconds, derr := p.downloader.DurationSeconds(path); derr == nil {
		duration = &seconds
	}

	tctx, cancel := context.WithTimeout(ctx, p.cfg.TranscribeTimeout)
	transcript, err := p.transcriber.Transcribe(tctx, path, p.language)
	cancel()
	if err != nil {
		p.log.Error("transcription failed", zap.Int64("work_item_id", job.WorkItemID), zap.Error(err))
		p.notify(ctx, item.Phone, failureReply)
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, p.cfg.SummarizeTimeout)
	m, err := p.summarizer.Summarize(sctx, transcript)
	cancel()
	if err != nil {
		p.log.Warn("summarization failed, storing placeholder",
			zap.Int64("work_item_id", job.WorkItemID), zap.Error(err))
		m = minutes.Minutes{Summary: minutes.Placeholder}
	}
	body := minutes.FormatWhatsApp(m)

	if err := p.repo.MarkDone(ctx, p.db, id, transcript, body, duration); err != nil {
		return err
	}

	p.notify(ctx, item.Phone, body)
	metrics.WorkerJobsTotal.WithLabelValues("completed").Inc()
	p.log.Info("work item completed",
		zap.Int64("work_item_id", job.WorkItemID),
		zap.String("phone", item.Phone))
	return nil
}

// RunForever drains the queue until the context is cancelled.
func (p *Processor) RunForever(ctx context.Context, consumer queue.Consumer) {
	p.log.Info("worker started", zap.Duration("poll_timeout", p.cfg.PollTimeout))
	for {
		select {
		case <-ctx.Done():
			p.log.Info("worker stopped")
			return
		default:
		}

		job, err := consumer.Dequeue(ctx, p.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info("worker stopped")
				return
			}
			p.log.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		if err := p.Process(ctx, *job); err != nil {
			metrics.WorkerJobsTotal.WithLabelValues("failed").Inc()
			p.log.Error("job processing failed",
				zap.Int64("work_item_id", job.WorkItemID), zap.Error(err))
		}
	}
}

// RequeueStale re-enqueues pending work items not touched since before. The
// queue pop is destructive, so a worker crash between Dequeue and MarkDone
// would otherwise orphan a charged item forever. A redelivery that races a
// live job is absorbed by the transcript guard in Process.
func (p *Processor) RequeueStale(ctx context.Context, enq queue.Enqueuer, before time.Time) (int, error) {
	items, err := p.repo.ListStalePending(ctx, p.db, before, requeueBatchSize)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for _, item := range items {
		contentType := ""
		if item.MediaContentType != nil {
			contentType = *item.MediaContentType
		}
		job := queue.Job{
			WorkItemID:  int64(item.ID),
			Phone:       item.Phone,
			MediaURL:    item.MediaURL,
			ContentType: contentType,
			EnqueuedAt:  time.Now().UTC(),
		}
		if err := enq.Enqueue(ctx, job); err != nil {
			return requeued, err
		}
		// Push the item out of the stale window so the next sweep does
		// not enqueue it again before this redelivery lands.
		if err := p.repo.Touch(ctx, p.db, item.ID); err != nil {
			return requeued, err
		}
		requeued++
		p.log.Info("requeued stale work item",
			zap.Int64("work_item_id", int64(item.ID)),
			zap.Time("last_touched", item.UpdatedAt))
	}
	return requeued, nil
}

// RunRequeueSweep recovers lost jobs: once at startup and then on an
// interval it re-enqueues pending items older than the requeue threshold.
func (p *Processor) RunRequeueSweep(ctx context.Context, enq queue.Enqueuer) {
	ticker := time.NewTicker(p.cfg.RequeueInterval)
	defer ticker.Stop()

	for {
		n, err := p.RequeueStale(ctx, enq, time.Now().UTC().Add(-p.cfg.RequeueAfter))
		if err != nil && ctx.Err() == nil {
			p.log.Error("requeue sweep failed", zap.Error(err))
		} else if n > 0 {
			p.log.Info("requeue sweep recovered jobs", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Processor) notify(ctx context.Context, phone, body string) {
	if p.sender == nil {
		return
	}
	if err := p.sender.SendMessage(ctx, phone, body); err != nil {
		p.log.Warn("outbound message failed", zap.String("phone", phone), zap.Error(err))
	}
}

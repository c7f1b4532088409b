package worker

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/mina/internal/config"
	"github.com/smallbiznis/mina/internal/providers/media"
	"github.com/smallbiznis/mina/internal/providers/messaging"
	"github.com/smallbiznis/mina/internal/providers/openai"
	"github.com/smallbiznis/mina/internal/queue"
	workitemdomain "github.com/smallbiznis/mina/internal/workitem/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    workitemdomain.Repository
	Fetcher *media.Fetcher
	OpenAI  *openai.Client
	Sender  messaging.Sender
	Cfg     config.Config
}

func provideProcessor(p Params) *Processor {
	return NewProcessor(
		p.DB,
		p.Log,
		p.Repo,
		p.Fetcher,
		p.OpenAI,
		p.OpenAI,
		p.Sender,
		p.Cfg.Language,
		Config{
			DownloadTimeout:   time.Duration(p.Cfg.Worker.DownloadTimeoutSeconds) * time.Second,
			TranscribeTimeout: time.Duration(p.Cfg.Worker.TranscribeTimeoutSeconds) * time.Second,
			SummarizeTimeout:  time.Duration(p.Cfg.Worker.SummarizeTimeoutSeconds) * time.Second,
			PollTimeout:       time.Duration(p.Cfg.Worker.PollTimeoutSeconds) * time.Second,
			RequeueAfter:      time.Duration(p.Cfg.Worker.RequeueAfterSeconds) * time.Second,
			RequeueInterval:   time.Duration(p.Cfg.Worker.RequeueSweepSeconds) * time.Second,
		},
	)
}

func run(lc fx.Lifecycle, processor *Processor, consumer queue.Consumer, enqueuer queue.Enqueuer) {
	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				processor.RunForever(runCtx, consumer)
			}()
			go func() {
				defer wg.Done()
				processor.RunRequeueSweep(runCtx, enqueuer)
			}()
			go func() {
				wg.Wait()
				close(done)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

var Module = fx.Module("worker",
	fx.Provide(provideProcessor),
	fx.Invoke(run),
)

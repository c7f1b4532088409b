package payment

import (
	"github.com/smallbiznis/mina/internal/config"
	"github.com/smallbiznis/mina/internal/payment/adapters/razorpay"
	paymentdomain "github.com/smallbiznis/mina/internal/payment/domain"
	"github.com/smallbiznis/mina/internal/payment/repository"
	"github.com/smallbiznis/mina/internal/payment/service"
	"go.uber.org/fx"
)

func provideProvider(cfg config.Config) paymentdomain.Provider {
	p := cfg.Providers
	return razorpay.New(p.RazorpayKeyID, p.RazorpayKeySecret, p.RazorpayWebhookSecret)
}

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(provideProvider),
	fx.Provide(service.NewService),
)

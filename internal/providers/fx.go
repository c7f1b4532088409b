// Package providers wires the external collaborators from configuration.
package providers

import (
	"github.com/smallbiznis/mina/internal/config"
	"github.com/smallbiznis/mina/internal/providers/media"
	"github.com/smallbiznis/mina/internal/providers/messaging"
	"github.com/smallbiznis/mina/internal/providers/openai"
	"go.uber.org/fx"
)

func newFetcher(cfg config.Config) *media.Fetcher {
	return media.NewFetcher(
		media.WithBasicAuth(cfg.Providers.TwilioAccountSID, cfg.Providers.TwilioAuthToken),
	)
}

func newOpenAI(cfg config.Config) *openai.Client {
	return openai.NewClient(
		cfg.Providers.OpenAIAPIKey,
		cfg.Providers.TranscribeModel,
		cfg.Providers.SummarizeModel,
	)
}

func newSender(cfg config.Config) messaging.Sender {
	return messaging.NewTwilioSender(
		cfg.Providers.TwilioAccountSID,
		cfg.Providers.TwilioAuthToken,
		cfg.Providers.TwilioWhatsAppFrom,
	)
}

var Module = fx.Module("providers",
	fx.Provide(
		newFetcher,
		newOpenAI,
		newSender,
	),
)

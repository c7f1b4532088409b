package dedupe

import "go.uber.org/fx"

var Module = fx.Module("dedupe",
	fx.Provide(NewLedger),
)

package reservation

import (
	"github.com/smallbiznis/mina/internal/reservation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reservation",
	fx.Provide(service.NewService),
)

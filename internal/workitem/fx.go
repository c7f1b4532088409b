package workitem

import (
	"github.com/smallbiznis/mina/internal/workitem/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("workitem",
	fx.Provide(repository.Provide),
)

package refund

import (
	"github.com/smallbiznis/payflow/internal/refund/service"
	"go.uber.org/fx"
)

var Module = fx.Module("refund",
	fx.Provide(service.NewService),
)

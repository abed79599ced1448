package audit

import (
	"github.com/smallbiznis/payflow/internal/audit/repository"
	"github.com/smallbiznis/payflow/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)

package credential

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ValidatorParams struct {
	fx.In

	Log    *zap.Logger
	Tester Tester `optional:"true"`
}

// Module wires the credential resolver and validator.
var Module = fx.Module("credential",
	fx.Provide(NewResolver),
	fx.Provide(func(p ValidatorParams) *Validator {
		return NewValidator(p.Log, p.Tester)
	}),
)

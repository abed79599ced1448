package provider

import (
	"github.com/smallbiznis/payflow/internal/config"
	"github.com/smallbiznis/payflow/internal/credential"
	obsmetrics "github.com/smallbiznis/payflow/internal/observability/metrics"
	"github.com/smallbiznis/payflow/internal/provider/domain"
	"github.com/smallbiznis/payflow/internal/provider/nvp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type clientParams struct {
	fx.In

	Settings *config.SettingsHolder
	Resolver nvp.CredentialSource
	Log      *zap.Logger
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Module wires the NVP client as both the payment API client and the
// credential live-check tester.
var Module = fx.Module("provider",
	fx.Provide(func(p clientParams) *nvp.Client {
		return nvp.NewClient(p.Settings, p.Resolver, p.Log).WithMetrics(p.Metrics)
	}),
	fx.Provide(func(client *nvp.Client) domain.Client { return client }),
	fx.Provide(func(client *nvp.Client) credential.Tester { return client }),
	fx.Provide(func(r *credential.Resolver) nvp.CredentialSource { return r }),
)

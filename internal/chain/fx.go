package chain

import (
	"github.com/uplinehq/upline/internal/chain/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chain.service",
	fx.Provide(service.New),
)

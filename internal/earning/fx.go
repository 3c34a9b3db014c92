package earning

import (
	"github.com/uplinehq/upline/internal/earning/repository"
	"github.com/uplinehq/upline/internal/earning/service"
	"go.uber.org/fx"
)

var Module = fx.Module("earning.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

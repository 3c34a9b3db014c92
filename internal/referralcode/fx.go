package referralcode

import (
	"github.com/uplinehq/upline/internal/referralcode/repository"
	"github.com/uplinehq/upline/internal/referralcode/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referralcode.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

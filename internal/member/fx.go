package member

import (
	"github.com/uplinehq/upline/internal/member/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("member",
	fx.Provide(repository.Provide),
)

package payment

import (
	"github.com/uplinehq/upline/internal/payment/repository"
	"github.com/uplinehq/upline/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package cashback

import (
	"github.com/smallbiznis/cueledger/internal/cashback/repository"
	"github.com/smallbiznis/cueledger/internal/cashback/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cashback.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package modules

import (
	"github.com/iota-uz/nero/modules/core"
	"github.com/iota-uz/nero/pkg/application"
)

var BuiltInModules = []application.Module{
	core.NewModule(),
}

func Load(app application.Application, mods ...application.Module) error {
	for _, module := range mods {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}

package app

import (
	"github.com/vk/tensorgrid/funcs/negate"
	"github.com/vk/tensorgrid/funcs/relu"
	"github.com/vk/tensorgrid/internal/extfunc"
)

// coreModules is the definitive list of all function modules that are
// compiled into the tensorgrid binary.
var coreModules = []extfunc.Module{
	&negate.Module{},
	&relu.Module{},
}

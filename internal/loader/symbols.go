package loader

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"epigonos/internal/expr"
	"epigonos/internal/model"
	"epigonos/internal/stats"
)

// Symbols exposes the tree primitives and host types to interpreted
// operator code. Scripts import them under the short virtual paths
// "epigonos/expr", "epigonos/model", and "epigonos/stats"; the values are
// the binary's own types, so functions returned by the interpreter
// interoperate with compiled code without conversion.
func Symbols() interp.Exports {
	return interp.Exports{
		"epigonos/expr/expr": {
			"Node":          reflect.ValueOf((*expr.Node)(nil)),
			"Expression":    reflect.ValueOf((*expr.Expression)(nil)),
			"Meta":          reflect.ValueOf((*expr.Meta)(nil)),
			"NewConstant":   reflect.ValueOf(expr.NewConstant),
			"NewFeature":    reflect.ValueOf(expr.NewFeature),
			"NewUnary":      reflect.ValueOf(expr.NewUnary),
			"NewBinary":     reflect.ValueOf(expr.NewBinary),
			"NewExpression": reflect.ValueOf(expr.NewExpression),
			"Sample":        reflect.ValueOf(expr.Sample),
			"Equal":         reflect.ValueOf((*expr.Node).Equal),
		},
		"epigonos/model/model": {
			"Member":          reflect.ValueOf((*model.Member)(nil)),
			"Population":      reflect.ValueOf((*model.Population)(nil)),
			"Options":         reflect.ValueOf((*model.Options)(nil)),
			"MutationWeights": reflect.ValueOf((*model.MutationWeights)(nil)),
			"MutationSlots":   reflect.ValueOf((*model.MutationSlots)(nil)),
			"NewMember":       reflect.ValueOf(model.NewMember),
			"Complexity":      reflect.ValueOf(model.Complexity),
			"SlotCapacity":    reflect.ValueOf(model.SlotCapacity),
		},
		"epigonos/stats/stats": {
			"Running":    reflect.ValueOf((*stats.Running)(nil)),
			"NewRunning": reflect.ValueOf(stats.NewRunning),
		},
	}
}

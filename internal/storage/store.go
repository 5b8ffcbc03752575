package storage

import (
	"context"

	"epigonos/internal/model"
)

// Store persists dynamically registered operator sources so they can be
// re-registered after a process restart. Kind is the operator namespace
// (mutation, selection, survival); kind plus name is the record identity.
type Store interface {
	Init(ctx context.Context) error
	SaveDynamicOperator(ctx context.Context, record model.DynamicOperatorRecord) error
	GetDynamicOperator(ctx context.Context, kind, name string) (model.DynamicOperatorRecord, bool, error)
	ListDynamicOperators(ctx context.Context, kind string) ([]model.DynamicOperatorRecord, error)
	DeleteDynamicOperator(ctx context.Context, kind, name string) error
	DeleteDynamicOperators(ctx context.Context, kind string) error
}

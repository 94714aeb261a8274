package trade

import "context"

//go:generate mockgen -source=interface.go -destination=mock/repository_mock.go -package=mock

// Repository persists trade rows durably.
type Repository interface {
	Store(ctx context.Context, row *Row) error
	StoreBatch(ctx context.Context, rows []*Row) error
	GetByID(ctx context.Context, id string) (*Row, error)
	ListByAccount(ctx context.Context, account string, limit int) ([]*Row, error)
}

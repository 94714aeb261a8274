package marketmakerv1

import (
	"context"

	"github.com/pkg/errors"

	tradev1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/trade/v1"
)

// ErrMakerNotFound is returned when no maker is registered under the ID.
var ErrMakerNotFound = errors.New("maker not found")

// Scheduler requotes registered market makers on a fixed interval. A failing
// maker never prevents the others from quoting.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=marketmakerv1_mock
type Scheduler interface {
	// AddMaker registers a maker strategy.
	AddMaker(cfg MakerConfig) error

	// SetActive pauses or resumes a maker without discarding its state.
	SetActive(id string, active bool) error

	// Tick cancels every active maker's open quotes and places fresh ones
	// around the current reference price.
	Tick(ctx context.Context)

	// Stats returns a maker's cumulative activity.
	Stats(id string) (Stats, error)
}

// Registry is notified of settled trades so maker stats stay current.
// Accounts that belong to no maker are ignored.
type Registry interface {
	RecordFill(account string, trade tradev1.Trade)
}

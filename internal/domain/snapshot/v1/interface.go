package snapshotv1

import (
	"context"

	"github.com/pkg/errors"
)

// ErrVersionMismatch is returned when a stored snapshot was written by an
// incompatible format version.
var ErrVersionMismatch = errors.New("snapshot version mismatch")

// Store defines the interface for storing and loading engine snapshots.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=snapshotv1_mock
type Store interface {
	Store(ctx context.Context, snapshot *Snapshot) error
	LoadStore(ctx context.Context) (*Snapshot, error)
}

package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/anteyko-labs/TradeShield-sub000/pkg/errors"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/logger"
	"github.com/anteyko-labs/TradeShield-sub000/pkg/redis"

	snapshotv1 "github.com/anteyko-labs/TradeShield-sub000/internal/domain/snapshot/v1"
)

// Store persists engine snapshots as versioned JSON documents in Redis,
// keyed by trading pair.
type Store struct {
	pair        string
	logger      *logger.Logger
	redisclient redis.Client
}

var _ snapshotv1.Store = (*Store)(nil)

// NewSnapshotStore creates a new snapshot store for the given pair.
func NewSnapshotStore(redisclient redis.Client, pair string, logger *logger.Logger) *Store {
	return &Store{
		pair:        pair,
		redisclient: redisclient,
		logger:      logger,
	}
}

func (s *Store) key() string {
	return fmt.Sprintf("snapshot:%s", s.pair)
}

// Store stores the snapshot in Redis. The format version is stamped here so
// readers of a different build refuse the document instead of misreading it.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	snapshot.Version = snapshotv1.CurrentVersion
	snapshot.Pair = s.pair

	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	err = s.redisclient.Set(ctx, s.key(), buf, 0)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		})

		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.InfoContext(ctx, fmt.Sprintf("Snapshot stored for pair %s", s.pair), logger.Field{
		Key:   "pair",
		Value: s.pair,
	}, logger.Field{
		Key:   "action",
		Value: "store snapshot",
	})
	return nil
}

// LoadStore loads the snapshot from Redis. It returns (nil, nil) when no
// snapshot exists and fails on a version mismatch.
func (s *Store) LoadStore(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key())
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, fmt.Sprintf("No snapshot found for pair %s", s.pair), logger.Field{
			Key:   "pair",
			Value: s.pair,
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		}, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	if snapshot.Version != snapshotv1.CurrentVersion {
		return nil, pkgerrors.Wrapf(snapshotv1.ErrVersionMismatch,
			"stored version %d, supported version %d", snapshot.Version, snapshotv1.CurrentVersion)
	}

	return &snapshot, nil
}

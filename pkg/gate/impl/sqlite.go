package impl

import (
	"context"
	"database/sql"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/textileio/go-autopay/pkg/database"
	"github.com/textileio/go-autopay/pkg/gate"
	"go.opentelemetry.io/otel/attribute"
)

// SQLiteStore persists the subscription state of an address in a SQLite database.
type SQLiteStore struct {
	db      *database.SQLiteDB
	address common.Address
}

var _ gate.StateStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path, migrating it if needed.
func NewSQLiteStore(path string, address common.Address) (*SQLiteStore, error) {
	db, err := database.Open(path, attribute.String("store", "subscription_state"))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return &SQLiteStore{db: db, address: address}, nil
}

// Load returns the stored state, or the zero state if nothing was saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (gate.SubscriptionState, error) {
	var last int64
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT last_transfer_time FROM subscription_state WHERE address = ?1`,
		s.address.Hex(),
	).Scan(&last)
	if err == sql.ErrNoRows {
		return gate.SubscriptionState{}, nil
	}
	if err != nil {
		return gate.SubscriptionState{}, errors.Wrap(err, "querying subscription state")
	}
	return gate.SubscriptionState{LastTransferTime: uint64(last)}, nil
}

// Save upserts the state.
func (s *SQLiteStore) Save(ctx context.Context, state gate.SubscriptionState) error {
	if _, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO subscription_state (address, last_transfer_time, updated_at) VALUES (?1, ?2, ?3)
		 ON CONFLICT (address) DO UPDATE SET last_transfer_time = ?2, updated_at = ?3`,
		s.address.Hex(),
		int64(state.LastTransferTime),
		time.Now().Unix(),
	); err != nil {
		return errors.Wrap(err, "upserting subscription state")
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

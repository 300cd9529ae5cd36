package vaultdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bitvault/bitvault/vault"
	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/lightningnetwork/lnd/kvdb/sqlite"
)

const (
	// BackendBolt stores vaults in a bbolt key/value file.
	BackendBolt = kvdb.BoltBackendName

	// BackendSqlite stores vaults in the kv tables of a sqlite database.
	// The binary must be built with the kvdb_sqlite tag.
	BackendSqlite = kvdb.SqliteBackendName

	boltFileName   = "vaults.db"
	sqliteFileName = "vaults.sqlite"

	// sqliteNamespace prefixes the kv tables inside the sqlite file.
	sqliteNamespace = "vaultdb"

	sqliteBusyTimeout    = 5 * time.Second
	sqliteMaxConnections = 1
)

var (
	// ErrVaultExists is returned when a vault with the same label is
	// already stored.
	ErrVaultExists = errors.New("vault already exists")

	// ErrAddressExists is returned when another label already owns the
	// address of a vault that is being inserted.
	ErrAddressExists = errors.New("vault address already in use")

	// ErrVaultNotFound is returned if no vault with the requested label
	// exists.
	ErrVaultNotFound = errors.New("vault not found")

	// ErrCorruptedStore is returned when one of the top level buckets is
	// missing.
	ErrCorruptedStore = errors.New("vault store is corrupted")

	// vaultBucket maps a label to the serialized record.
	vaultBucket = []byte("vaults-by-label")

	// addressBucket maps a vault address to the label owning it.
	addressBucket = []byte("labels-by-address")

	topLevelBuckets = [][]byte{vaultBucket, addressBucket}
)

// Record is a stored vault. Keys are never persisted, they are derived from
// the root key and the label whenever a vault is needed.
type Record struct {
	Label      string
	Address    string
	SpendDelay uint16
}

// Store persists vault records.
type Store interface {
	// Insert adds a new record. ErrVaultExists is returned if the label
	// is already taken, ErrAddressExists if the address is.
	Insert(r *Record) error

	// ReadAll returns all records ordered by label.
	ReadAll() ([]*Record, error)

	// Fetch returns the record with the given label.
	Fetch(label string) (*Record, error)

	// Close closes the underlying database.
	Close() error
}

// Config selects and configures the store backend.
type Config struct {
	Backend string
	DataDir string
	Timeout time.Duration
}

// DB is a Store on top of any kvdb backend.
type DB struct {
	kvdb.Backend
}

// A compile time check to make sure DB implements Store.
var _ Store = (*DB)(nil)

// Open opens the configured backend, creating the data directory and the
// top level buckets if needed.
func Open(cfg *Config) (*DB, error) {
	if cfg.DataDir == "" {
		return nil, vault.Errorf(
			vault.KindMalformedInput, "open", "data directory "+
				"required",
		)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("error creating data dir: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = kvdb.DefaultDBTimeout
	}

	backend, err := openBackend(cfg, timeout)
	if err != nil {
		return nil, vault.NewError(vault.KindCollaborator, "open", err)
	}

	err = kvdb.Update(backend, func(tx kvdb.RwTx) error {
		for _, bucket := range topLevelBuckets {
			_, err := tx.CreateTopLevelBucket(bucket)
			if err != nil {
				return err
			}
		}

		return nil
	}, func() {})
	if err != nil {
		_ = backend.Close()
		return nil, vault.NewError(
			vault.KindCollaborator, "open",
			fmt.Errorf("error creating buckets: %w", err),
		)
	}

	log.Debugf("Opened %s vault store in %s", cfg.Backend, cfg.DataDir)

	return &DB{Backend: backend}, nil
}

func openBackend(cfg *Config, timeout time.Duration) (kvdb.Backend, error) {
	switch cfg.Backend {
	case BackendBolt, "":
		return kvdb.GetBoltBackend(&kvdb.BoltBackendConfig{
			DBPath:            cfg.DataDir,
			DBFileName:        boltFileName,
			DBTimeout:         timeout,
			AutoCompactMinAge: kvdb.DefaultBoltAutoCompactMinAge,
		})

	case BackendSqlite:
		if !kvdb.SqliteBackend {
			return nil, errors.New("sqlite backend not " +
				"available, build with the kvdb_sqlite tag")
		}

		return kvdb.Open(
			kvdb.SqliteBackendName, context.Background(),
			&sqlite.Config{
				Timeout:        timeout,
				BusyTimeout:    sqliteBusyTimeout,
				MaxConnections: sqliteMaxConnections,
			}, cfg.DataDir, sqliteFileName, sqliteNamespace,
		)

	default:
		return nil, fmt.Errorf("unknown db backend: %s", cfg.Backend)
	}
}

// Insert adds a new record.
func (d *DB) Insert(r *Record) error {
	if err := validate(r); err != nil {
		return vault.NewError(vault.KindMalformedInput, "insert", err)
	}

	return kvdb.Update(d, func(tx kvdb.RwTx) error {
		vaults := tx.ReadWriteBucket(vaultBucket)
		addresses := tx.ReadWriteBucket(addressBucket)
		if vaults == nil || addresses == nil {
			return ErrCorruptedStore
		}

		if vaults.Get([]byte(r.Label)) != nil {
			return fmt.Errorf("%w: %s", ErrVaultExists, r.Label)
		}

		// Two labels hashing to the same key index derive the same
		// vault.
		owner := addresses.Get([]byte(r.Address))
		if owner != nil {
			return fmt.Errorf("%w: %s belongs to vault %s",
				ErrAddressExists, r.Address, owner)
		}

		err := vaults.Put([]byte(r.Label), encodeRecord(r))
		if err != nil {
			return err
		}

		return addresses.Put([]byte(r.Address), []byte(r.Label))
	}, func() {})
}

// ReadAll returns all records ordered by label.
func (d *DB) ReadAll() ([]*Record, error) {
	var records []*Record
	err := kvdb.View(d, func(tx kvdb.RTx) error {
		vaults := tx.ReadBucket(vaultBucket)
		if vaults == nil {
			return ErrCorruptedStore
		}

		return vaults.ForEach(func(k, v []byte) error {
			r, err := decodeRecord(string(k), v)
			if err != nil {
				return err
			}
			records = append(records, r)

			return nil
		})
	}, func() {
		records = nil
	})
	if err != nil {
		return nil, vault.NewError(
			vault.KindCollaborator, "read all", err,
		)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Label < records[j].Label
	})

	return records, nil
}

// Fetch returns the record with the given label.
func (d *DB) Fetch(label string) (*Record, error) {
	var record *Record
	err := kvdb.View(d, func(tx kvdb.RTx) error {
		vaults := tx.ReadBucket(vaultBucket)
		if vaults == nil {
			return ErrCorruptedStore
		}

		v := vaults.Get([]byte(label))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrVaultNotFound, label)
		}

		var err error
		record, err = decodeRecord(label, v)
		return err
	}, func() {
		record = nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func validate(r *Record) error {
	switch {
	case r == nil:
		return errors.New("nil record")

	case r.Label == "":
		return errors.New("label cannot be empty")

	case r.Address == "":
		return errors.New("address cannot be empty")

	case r.SpendDelay == 0:
		return errors.New("spend delay must be positive")
	}

	return nil
}

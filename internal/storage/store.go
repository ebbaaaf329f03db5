// Package storage keeps a local SQLite cache of ledger state: wallets,
// assets, and the raw event journal. The server stays authoritative; this
// cache exists so a game can render inventories offline and replay the
// event stream after a restart.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"

	"github.com/FabianB14/InterverseSDK/internal/domain"
	"github.com/FabianB14/InterverseSDK/internal/event"
)

// Store is the SQLite-backed local cache. Safe for concurrent use; the
// underlying database/sql pool serializes writers.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database with WAL mode enabled.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			seq INTEGER NOT NULL,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS wallets (
			address TEXT PRIMARY KEY,
			balance TEXT NOT NULL,
			public_key TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS assets (
			asset_id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			game_id TEXT NOT NULL,
			category TEXT NOT NULL,
			rarity TEXT NOT NULL,
			payload BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets(owner);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// SaveEvent journals one event. The journal assigns its own position (id);
// not every event type carries a meaningful Seq, so Seq is recorded as a
// plain column, never as a key.
func (s *Store) SaveEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (seq, type, ts, payload) VALUES (?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// LastJournalPos returns the highest journal position, 0 when empty.
func (s *Store) LastJournalPos(ctx context.Context) (uint64, error) {
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to get journal position: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}

// ReplayBalanceEvents loads journaled balance updates from journal position
// fromPos (inclusive) in arrival order.
func (s *Store) ReplayBalanceEvents(ctx context.Context, fromPos uint64) ([]event.BalanceUpdatedEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM events WHERE id >= ? AND type = ? ORDER BY id ASC",
		fromPos, event.EvBalanceUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.BalanceUpdatedEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		var ev event.BalanceUpdatedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

// SaveWallet upserts the cached view of one wallet.
func (s *Store) SaveWallet(ctx context.Context, w domain.Wallet, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (address, balance, public_key, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET balance=excluded.balance, public_key=excluded.public_key, updated_at=excluded.updated_at`,
		w.Address, w.Balance.String(), w.PublicKey, ts,
	)
	return err
}

// GetWallet returns the cached wallet, or ok=false when never seen.
func (s *Store) GetWallet(ctx context.Context, address string) (domain.Wallet, bool, error) {
	var w domain.Wallet
	var balance string
	err := s.db.QueryRowContext(ctx,
		"SELECT address, balance, public_key FROM wallets WHERE address = ?", address,
	).Scan(&w.Address, &balance, &w.PublicKey)
	if err == sql.ErrNoRows {
		return domain.Wallet{}, false, nil
	}
	if err != nil {
		return domain.Wallet{}, false, err
	}
	w.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return domain.Wallet{}, false, fmt.Errorf("corrupt balance for %s: %w", address, err)
	}
	return w, true, nil
}

// UpsertAsset caches one asset. The full record travels as JSON so schema
// churn on the asset shape never needs a migration.
func (s *Store) UpsertAsset(ctx context.Context, a domain.Asset, ts int64) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal asset: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO assets (asset_id, owner, game_id, category, rarity, payload, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(asset_id) DO UPDATE SET owner=excluded.owner, game_id=excluded.game_id,
		 category=excluded.category, rarity=excluded.rarity, payload=excluded.payload, updated_at=excluded.updated_at`,
		a.AssetID, a.Owner, a.GameID, a.Category.String(), a.Rarity.String(), payload, ts,
	)
	return err
}

// ListAssets returns the cached assets owned by one wallet, newest first.
func (s *Store) ListAssets(ctx context.Context, owner string) ([]domain.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM assets WHERE owner = ? ORDER BY updated_at DESC", owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var a domain.Asset
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("corrupt asset record: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *Store) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table, "" when unset.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

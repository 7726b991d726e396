// Package dbtest opens throwaway sqlite databases carrying the service schema
// for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailops-backend/pkg/db"
)

// Schema mirrors the goose migrations using sqlite column types. Money columns
// are TEXT so decimals round-trip without float conversion.
var Schema = []string{
	`CREATE TABLE locations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);`,
	`CREATE TABLE suppliers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME,
	updated_at DATETIME
);`,
	`CREATE TABLE items (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	sku TEXT,
	purchase_price_usd TEXT NOT NULL DEFAULT '0',
	last_unit_cost TEXT,
	last_cost_currency TEXT,
	created_at DATETIME,
	updated_at DATETIME
);`,
	`CREATE TABLE wallets (
	id TEXT PRIMARY KEY,
	location_id TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	currency TEXT NOT NULL,
	initial_balance TEXT NOT NULL DEFAULT '0',
	balance TEXT NOT NULL DEFAULT '0',
	version INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME
);`,
	`CREATE TABLE wallet_transactions (
	id TEXT PRIMARY KEY,
	wallet_id TEXT NOT NULL,
	type TEXT NOT NULL,
	amount TEXT NOT NULL,
	balance_before TEXT NOT NULL,
	balance_after TEXT NOT NULL,
	currency TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	reference_type TEXT NOT NULL,
	reference_id TEXT,
	transfer_id TEXT,
	actor_user_id TEXT,
	created_at DATETIME
);`,
	`CREATE TABLE purchase_orders (
	id TEXT PRIMARY KEY,
	wallet_id TEXT NOT NULL,
	location_id TEXT NOT NULL,
	supplier_id TEXT,
	currency TEXT NOT NULL,
	exchange_rate TEXT NOT NULL,
	total_amount TEXT NOT NULL,
	wallet_amount TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	notes TEXT,
	expected_arrival DATETIME,
	created_by TEXT,
	created_at DATETIME,
	updated_at DATETIME,
	cancelled_at DATETIME
);`,
	`CREATE TABLE purchase_order_lines (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	item_name TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL,
	unit_cost TEXT NOT NULL,
	subtotal TEXT NOT NULL,
	quantity_received INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME
);`,
	`CREATE TABLE stock_levels (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	location_id TEXT NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME,
	CONSTRAINT stock_levels_item_location_key UNIQUE (item_id, location_id)
);`,
	`CREATE TABLE stock_movements (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	location_id TEXT NOT NULL,
	delta INTEGER NOT NULL,
	reference_type TEXT NOT NULL,
	reference_id TEXT,
	created_at DATETIME
);`,
	`CREATE TABLE exchange_rates (
	id TEXT PRIMARY KEY,
	srd_per_usd TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT 'manual',
	actor_user_id TEXT,
	created_at DATETIME
);`,
	`CREATE TABLE activity_logs (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	entity_name TEXT NOT NULL DEFAULT '',
	details TEXT,
	user_id TEXT,
	created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME,
	published_at DATETIME,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	error_reason TEXT NOT NULL,
	error_message TEXT,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	failed_at DATETIME,
	created_at DATETIME
);`,
}

// Open returns a fresh in-memory database named after the running test with
// the full schema applied. The connection is closed on cleanup.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A single connection serialises writers the way row locks do in Postgres.
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range Schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return conn
}

// Client wraps Open in a *db.Client so services get a real WithTx.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromConn(Open(t))
}

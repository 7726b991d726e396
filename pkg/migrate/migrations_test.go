package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/retailops-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWalletsMigrationGuardsLedger(t *testing.T) {
	assertContains(t, readMigration(t, "create_wallets"), []string{
		"CREATE TABLE IF NOT EXISTS wallets",
		"version bigint NOT NULL DEFAULT 0",
		"CHECK (balance >= 0)",
		"CREATE TABLE IF NOT EXISTS wallet_transactions",
		"reference_type IN ('order', 'transfer', 'correction', 'adjustment')",
		"BEFORE UPDATE OR DELETE ON wallet_transactions",
		"DROP TABLE IF EXISTS wallets",
	})
}

func TestPurchaseOrdersMigrationBoundsReceipts(t *testing.T) {
	assertContains(t, readMigration(t, "create_purchase_orders"), []string{
		"CREATE TABLE IF NOT EXISTS purchase_orders",
		"exchange_rate numeric(18,4) NOT NULL CHECK (exchange_rate > 0)",
		"'pending', 'ordered', 'shipped', 'partially_received', 'received', 'cancelled'",
		"FOREIGN KEY (order_id) REFERENCES purchase_orders(id) ON DELETE CASCADE",
		"CHECK (quantity_received >= 0 AND quantity_received <= quantity)",
		"DROP TABLE IF EXISTS purchase_order_lines",
	})
}

func TestStockMigrationHasUpsertKey(t *testing.T) {
	assertContains(t, readMigration(t, "create_stock_tables"), []string{
		"CONSTRAINT stock_levels_item_location_key UNIQUE (item_id, location_id)",
		"CREATE TABLE IF NOT EXISTS stock_movements",
	})
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected shipped migrations to validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Wallet Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_wallet_notes.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestDialect(t *testing.T) {
	if got := migrate.Dialect("sqlite"); got != "sqlite3" {
		t.Fatalf("expected sqlite3, got %q", got)
	}
	if got := migrate.Dialect("postgres"); got != "postgres" {
		t.Fatalf("expected postgres, got %q", got)
	}
}

func TestCreateSQLMigrationStaysAheadOfExistingVersions(t *testing.T) {
	dir := t.TempDir()
	future := "29991231235959_future.sql"
	if err := os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	path, err := migrate.CreateSQLMigration(dir, "next")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if got := filepath.Base(path); got != "30000101000000_next.sql" {
		t.Fatalf("expected version after the latest file, got %q", got)
	}
}

func TestValidateDirRejectsBrokenAnnotations(t *testing.T) {
	cases := map[string]string{
		"down_first":   "-- +goose Down\n-- +goose Up\n",
		"unterminated": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"stray_end":    "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "20260101000000_broken.sql"), []byte(body), 0o644); err != nil {
				t.Fatalf("write file: %v", err)
			}
			if err := migrate.ValidateDir(dir); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

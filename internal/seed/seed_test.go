package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/cotizador/internal/db"
	"github.com/Simplici0/cotizador/internal/migrations"
)

// statuses + inks + faces + bands + tariffs + type/material/caliber/config + dies + client
const firstRunInserts = 4 + 4 + 2 + 4 + 32 + 4 + 3 + 1

func TestRunIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(db.SQLite, dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, db.SQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		stats, err := Run(ctx, database, db.SQLite)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != firstRunInserts {
				t.Fatalf("expected %d inserts in first run, got %d", firstRunInserts, stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM quote_statuses`, nil, 4)
	assertCount(t, database, `SELECT COUNT(*) FROM production_tariffs`, nil, 32)
	assertCount(t, database, `SELECT COUNT(*) FROM weight_bands WHERE kg_max IS NULL`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM clients WHERE name = ?`, DemoClientName, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM product_configs WHERE size = ?`, DemoProductSize, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM dies`, nil, 3)
}

func TestSeededTariffPrices(t *testing.T) {
	database, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "seed-prices.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()
	if err := migrations.Up(database, db.SQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := Run(context.Background(), database, db.SQLite); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	var price int64
	err = database.QueryRow(`
		SELECT t.price_per_kg
		FROM production_tariffs t
		INNER JOIN weight_bands w ON w.id = t.weight_band_id
		WHERE t.ink_id = 3 AND t.face_id = 2 AND w.kg = 30
	`).Scan(&price)
	if err != nil {
		t.Fatalf("query tariff: %v", err)
	}
	if price != 40+10+3 {
		t.Fatalf("expected price 53, got %d", price)
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}

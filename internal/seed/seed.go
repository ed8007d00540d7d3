// Package seed loads the development catalog: quote statuses, production
// options, tariffs, one product configuration, dies and a demo client.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/cotizador/internal/db"
)

const (
	DemoClientName     = "Cliente Demo"
	DemoProductType    = "Bolsa"
	DemoProductSize    = "30x40"
	DemoMaterial       = "Polietileno alta densidad"
	DemoCaliber        = "200"
	DemoUnitsPerKg     = 50
	defaultClientEmail = "demo@cliente.mx"
)

var statuses = []struct {
	ID   int64
	Name string
}{
	{1, "Pendiente"},
	{2, "En proceso"},
	{3, "Aprobada"},
	{4, "Rechazada"},
}

var (
	inkCounts  = []int64{1, 2, 3, 4}
	faceCounts = []int64{1, 2}
	dieKinds   = []string{"Sin suaje", "Troquel", "Asa flexible"}
)

// weightBand is one seeded range; Kg is the label used as natural key.
type weightBand struct {
	Kg           int64
	Min          *int64
	Max          *int64
	BasePrice    int64
	WastePercent int64
}

var weightBands = []weightBand{
	{Kg: 10, Min: nil, Max: ptr(10), BasePrice: 55, WastePercent: 8},
	{Kg: 30, Min: ptr(10), Max: ptr(30), BasePrice: 40, WastePercent: 5},
	{Kg: 100, Min: ptr(30), Max: ptr(100), BasePrice: 35, WastePercent: 4},
	{Kg: 1000, Min: ptr(100), Max: nil, BasePrice: 30, WastePercent: 3},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type seeder struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect db.Dialect
	stats   Stats
}

// Run executes the development seed in an idempotent way.
func Run(ctx context.Context, database *sql.DB, dialect db.Dialect) (Stats, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	s := &seeder{ctx: ctx, tx: tx, dialect: dialect}
	steps := []func() error{
		s.ensureStatuses,
		s.ensureOptions,
		s.ensureTariffs,
		s.ensureProductConfig,
		s.ensureDies,
		s.ensureDemoClient,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return s.stats, nil
}

func (s *seeder) exists(query string, args ...any) (bool, error) {
	var exists bool
	err := s.tx.QueryRowContext(s.ctx, s.dialect.Rebind(`SELECT EXISTS(`+query+`)`), args...).Scan(&exists)
	return exists, err
}

func (s *seeder) insert(query string, args ...any) error {
	if _, err := s.tx.ExecContext(s.ctx, s.dialect.Rebind(query), args...); err != nil {
		return err
	}
	s.stats.Inserts++
	return nil
}

func (s *seeder) lookupID(query string, args ...any) (int64, error) {
	var id int64
	err := s.tx.QueryRowContext(s.ctx, s.dialect.Rebind(query), args...).Scan(&id)
	return id, err
}

// ensureID returns the id of the row matched by lookup, inserting it first
// when missing.
func (s *seeder) ensureID(lookup string, lookupArgs []any, insert string, insertArgs []any) (int64, error) {
	id, err := s.lookupID(lookup, lookupArgs...)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if err := s.insert(insert, insertArgs...); err != nil {
		return 0, err
	}
	return s.lookupID(lookup, lookupArgs...)
}

func (s *seeder) ensureStatuses() error {
	for _, st := range statuses {
		exists, err := s.exists(`SELECT 1 FROM quote_statuses WHERE id = ?`, st.ID)
		if err != nil {
			return fmt.Errorf("check quote status %d: %w", st.ID, err)
		}
		if exists {
			continue
		}
		if err := s.insert(`INSERT INTO quote_statuses (id, name) VALUES (?, ?)`, st.ID, st.Name); err != nil {
			return fmt.Errorf("insert quote status %d: %w", st.ID, err)
		}
	}
	return nil
}

func (s *seeder) ensureOptions() error {
	for _, table := range []struct {
		name   string
		counts []int64
	}{{"inks", inkCounts}, {"faces", faceCounts}} {
		for _, n := range table.counts {
			exists, err := s.exists(`SELECT 1 FROM `+table.name+` WHERE id = ?`, n)
			if err != nil {
				return fmt.Errorf("check %s %d: %w", table.name, n, err)
			}
			if exists {
				continue
			}
			if err := s.insert(`INSERT INTO `+table.name+` (id, count) VALUES (?, ?)`, n, n); err != nil {
				return fmt.Errorf("insert %s %d: %w", table.name, n, err)
			}
		}
	}
	return nil
}

// ensureTariffs seeds one tariff per ink, face and weight band. Each extra ink
// adds 5 per kg and each extra face 3 per kg over the band's base price.
func (s *seeder) ensureTariffs() error {
	for _, wb := range weightBands {
		bandID, err := s.ensureID(
			`SELECT id FROM weight_bands WHERE kg = ?`, []any{wb.Kg},
			`INSERT INTO weight_bands (kg, kg_min, kg_max) VALUES (?, ?, ?)`, []any{wb.Kg, wb.Min, wb.Max},
		)
		if err != nil {
			return fmt.Errorf("ensure weight band %d: %w", wb.Kg, err)
		}

		for _, ink := range inkCounts {
			for _, face := range faceCounts {
				exists, err := s.exists(`SELECT 1 FROM production_tariffs WHERE ink_id = ? AND face_id = ? AND weight_band_id = ?`, ink, face, bandID)
				if err != nil {
					return fmt.Errorf("check tariff: %w", err)
				}
				if exists {
					continue
				}
				price := decimal.NewFromInt(wb.BasePrice + 5*(ink-1) + 3*(face-1))
				if err := s.insert(`
					INSERT INTO production_tariffs (ink_id, face_id, weight_band_id, price_per_kg, waste_percent)
					VALUES (?, ?, ?, ?, ?)
				`, ink, face, bandID, price, decimal.NewFromInt(wb.WastePercent)); err != nil {
					return fmt.Errorf("insert tariff: %w", err)
				}
			}
		}
	}
	return nil
}

func (s *seeder) ensureProductConfig() error {
	typeID, err := s.ensureID(
		`SELECT id FROM product_types WHERE name = ?`, []any{DemoProductType},
		`INSERT INTO product_types (name) VALUES (?)`, []any{DemoProductType},
	)
	if err != nil {
		return fmt.Errorf("ensure product type: %w", err)
	}
	materialID, err := s.ensureID(
		`SELECT id FROM materials WHERE name = ?`, []any{DemoMaterial},
		`INSERT INTO materials (name) VALUES (?)`, []any{DemoMaterial},
	)
	if err != nil {
		return fmt.Errorf("ensure material: %w", err)
	}
	caliberID, err := s.ensureID(
		`SELECT id FROM calibers WHERE caliber = ?`, []any{DemoCaliber},
		`INSERT INTO calibers (caliber) VALUES (?)`, []any{DemoCaliber},
	)
	if err != nil {
		return fmt.Errorf("ensure caliber: %w", err)
	}

	_, err = s.ensureID(
		`SELECT id FROM product_configs WHERE product_type_id = ? AND material_id = ? AND caliber_id = ? AND size = ?`,
		[]any{typeID, materialID, caliberID, DemoProductSize},
		`INSERT INTO product_configs (product_type_id, material_id, caliber_id, height, width, size, units_per_kg) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		[]any{typeID, materialID, caliberID, 40, 30, DemoProductSize, DemoUnitsPerKg},
	)
	if err != nil {
		return fmt.Errorf("ensure product config: %w", err)
	}
	return nil
}

func (s *seeder) ensureDies() error {
	for _, kind := range dieKinds {
		exists, err := s.exists(`SELECT 1 FROM dies WHERE kind = ?`, kind)
		if err != nil {
			return fmt.Errorf("check die %q: %w", kind, err)
		}
		if exists {
			continue
		}
		if err := s.insert(`INSERT INTO dies (kind) VALUES (?)`, kind); err != nil {
			return fmt.Errorf("insert die %q: %w", kind, err)
		}
	}
	return nil
}

func (s *seeder) ensureDemoClient() error {
	exists, err := s.exists(`SELECT 1 FROM clients WHERE name = ?`, DemoClientName)
	if err != nil {
		return fmt.Errorf("check demo client: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.insert(`
		INSERT INTO clients (name, company, phone, email)
		VALUES (?, ?, ?, ?)
	`, DemoClientName, "Demo S.A. de C.V.", "5555555555", defaultClientEmail); err != nil {
		return fmt.Errorf("insert demo client: %w", err)
	}
	return nil
}

func ptr(v int64) *int64 { return &v }

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/cotizador/internal/apperr"
	"github.com/Simplici0/cotizador/internal/db"
	"github.com/Simplici0/cotizador/internal/pricing"
)

// Die is a handle/die-cut option ("suaje") for a bag.
type Die struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
}

// Option is an ink-count or face-count catalog entry.
type Option struct {
	ID    int64 `json:"id"`
	Count int   `json:"count"`
}

// ProductionCatalogs groups the ink and face options offered for printing.
type ProductionCatalogs struct {
	Inks  []Option `json:"inks"`
	Faces []Option `json:"faces"`
}

// Client holds the display fields of a client record.
type Client struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// TariffUpdate changes the rate of one tariff band.
type TariffUpdate struct {
	ID           int64           `json:"id"`
	PricePerKg   decimal.Decimal `json:"pricePerKg"`
	WastePercent decimal.Decimal `json:"wastePercent"`
}

// Store reads catalog tables.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewStore returns a Store whose queries are rebound for dialect.
func NewStore(database *sql.DB, dialect db.Dialect) *Store {
	return &Store{db: database, dialect: dialect}
}

// TariffBands returns every tariff joined to its weight band, sorted by
// ascending lower bound as the pricing engine expects.
func (s *Store) TariffBands(ctx context.Context) ([]pricing.TariffBand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			t.id,
			t.ink_id,
			t.face_id,
			t.weight_band_id,
			COALESCE(w.kg_min, 0),
			w.kg_max,
			t.price_per_kg,
			t.waste_percent
		FROM production_tariffs t
		INNER JOIN weight_bands w ON w.id = t.weight_band_id
		ORDER BY COALESCE(w.kg_min, 0) ASC, t.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tariff bands: %w", err)
	}
	defer rows.Close()

	bands := make([]pricing.TariffBand, 0)
	for rows.Next() {
		var b pricing.TariffBand
		if err := rows.Scan(&b.ID, &b.InkID, &b.FaceID, &b.WeightBandID, &b.WeightMin, &b.WeightMax, &b.PricePerKg, &b.WastePercent); err != nil {
			return nil, fmt.Errorf("scan tariff band: %w", err)
		}
		bands = append(bands, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tariff bands: %w", err)
	}

	return bands, nil
}

// UpdateTariffs applies every update in one transaction; a missing id rolls
// back the whole batch.
func (s *Store) UpdateTariffs(ctx context.Context, updates []TariffUpdate) error {
	if len(updates) == 0 {
		return apperr.Validation("at least one tariff is required")
	}
	for _, u := range updates {
		if u.ID <= 0 {
			return apperr.Validation("tariff id is required")
		}
		if u.PricePerKg.IsNegative() || u.WastePercent.IsNegative() {
			return apperr.Validation("tariff %d: price and waste must be >= 0", u.ID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tariff update: %w", err)
	}
	defer tx.Rollback()

	q := s.dialect.Rebind(`UPDATE production_tariffs SET price_per_kg = ?, waste_percent = ? WHERE id = ?`)
	for _, u := range updates {
		res, err := tx.ExecContext(ctx, q, u.PricePerKg, u.WastePercent, u.ID)
		if err != nil {
			return fmt.Errorf("update tariff %d: %w", u.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update tariff %d: %w", u.ID, err)
		}
		if affected == 0 {
			return apperr.NotFound("tariff %d not found", u.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tariff update: %w", err)
	}
	return nil
}

// Dies lists the die options ordered by kind.
func (s *Store) Dies(ctx context.Context) ([]Die, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind FROM dies ORDER BY kind ASC`)
	if err != nil {
		return nil, fmt.Errorf("query dies: %w", err)
	}
	defer rows.Close()

	dies := make([]Die, 0)
	for rows.Next() {
		var die Die
		if err := rows.Scan(&die.ID, &die.Kind); err != nil {
			return nil, fmt.Errorf("scan die: %w", err)
		}
		dies = append(dies, die)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dies: %w", err)
	}
	return dies, nil
}

// ProductionCatalogs returns the ink and face count options.
func (s *Store) ProductionCatalogs(ctx context.Context) (ProductionCatalogs, error) {
	inks, err := s.options(ctx, `SELECT id, count FROM inks ORDER BY count ASC`)
	if err != nil {
		return ProductionCatalogs{}, fmt.Errorf("query inks: %w", err)
	}
	faces, err := s.options(ctx, `SELECT id, count FROM faces ORDER BY count ASC`)
	if err != nil {
		return ProductionCatalogs{}, fmt.Errorf("query faces: %w", err)
	}
	return ProductionCatalogs{Inks: inks, Faces: faces}, nil
}

func (s *Store) options(ctx context.Context, query string) ([]Option, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opts := make([]Option, 0)
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Count); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// Client returns the display fields of client id.
func (s *Store) Client(ctx context.Context, id int64) (Client, error) {
	c := Client{ID: id}
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`
		SELECT name, COALESCE(company, ''), COALESCE(phone, ''), COALESCE(email, '')
		FROM clients
		WHERE id = ?
	`), id).Scan(&c.Name, &c.Company, &c.Phone, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Client{}, apperr.NotFound("client %d not found", id)
	}
	if err != nil {
		return Client{}, fmt.Errorf("query client: %w", err)
	}
	return c, nil
}

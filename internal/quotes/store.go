package quotes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Simplici0/cotizador/internal/apperr"
	"github.com/Simplici0/cotizador/internal/db"
	"github.com/Simplici0/cotizador/internal/logger"
)

// Store persists quotes, their products and their lines.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	log     *logger.Logger
}

func NewStore(database *sql.DB, dialect db.Dialect, log *logger.Logger) *Store {
	return &Store{db: database, dialect: dialect, log: log.With("store", "quotes")}
}

// inTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Internal("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Internal("commit transaction", err)
	}
	return nil
}

// Create stores a quote with status Pending and returns its sequence number.
// Nothing is persisted unless every product has at least one valid line.
func (s *Store) Create(ctx context.Context, in NewQuote) (int64, error) {
	if in.ClientID <= 0 {
		return 0, apperr.Validation("clientId is required")
	}
	if len(in.Products) == 0 {
		return 0, apperr.Validation("at least one product is required")
	}

	var sequence int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		clientExists, err := s.exists(ctx, tx, "clients", in.ClientID)
		if err != nil {
			return err
		}
		if !clientExists {
			return apperr.Validation("client %d does not exist", in.ClientID)
		}

		if err := tx.QueryRowContext(ctx, `
			UPDATE quote_sequence
			SET last_value = last_value + 1
			WHERE id = 1
			RETURNING last_value
		`).Scan(&sequence); err != nil {
			return fmt.Errorf("allocate sequence number: %w", err)
		}

		var quoteID int64
		if err := tx.QueryRowContext(ctx, s.dialect.Rebind(`
			INSERT INTO quotes (sequence_number, client_id, status_id)
			VALUES (?, ?, ?)
			RETURNING id
		`), sequence, in.ClientID, StatusPending).Scan(&quoteID); err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}

		for i, p := range in.Products {
			if err := s.insertProduct(ctx, tx, quoteID, i, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("quote created", "sequence", sequence, "clientId", in.ClientID, "products", len(in.Products))
	return sequence, nil
}

// exists reports whether table has a row with id. table is always a literal
// from this package.
func (s *Store) exists(ctx context.Context, tx *sql.Tx, table string, id int64) (bool, error) {
	var found bool
	query := s.dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM ` + table + ` WHERE id = ?)`)
	if err := tx.QueryRowContext(ctx, query, id).Scan(&found); err != nil {
		return false, fmt.Errorf("check %s %d: %w", table, id, err)
	}
	return found, nil
}

func (s *Store) insertProduct(ctx context.Context, tx *sql.Tx, quoteID int64, index int, p NewProduct) error {
	if p.ProductConfigID <= 0 {
		return apperr.Validation("product %d: productConfigId is required", index+1)
	}

	lines := make([]NewLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		if l.Valid() {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return apperr.Conflict("product %d has no valid lines (quantity and total must be greater than 0)", p.ProductConfigID)
	}

	ok, err := s.exists(ctx, tx, "product_configs", p.ProductConfigID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("product %d: productConfigId %d does not exist", index+1, p.ProductConfigID)
	}
	if p.DieID != nil {
		ok, err := s.exists(ctx, tx, "dies", *p.DieID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation("product %d: dieId %d does not exist", index+1, *p.DieID)
		}
	}

	var productID int64
	if err := tx.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO quote_products (
			quote_id,
			product_config_id,
			ink_id,
			face_id,
			die_id,
			bk,
			foil,
			embossing,
			lamination,
			uv_coating,
			pigments,
			pantones,
			observation
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), quoteID, p.ProductConfigID, p.InkID, p.FaceID, p.DieID,
		p.Bk, p.Foil, p.Embossing, p.Lamination, p.UVCoating,
		p.Pigments, p.Pantones, blankToNil(p.Observation),
	).Scan(&productID); err != nil {
		return fmt.Errorf("insert quote product %d: %w", p.ProductConfigID, err)
	}

	lineQuery := s.dialect.Rebind(`
		INSERT INTO quote_lines (quote_product_id, quantity, line_total)
		VALUES (?, ?, ?)
	`)
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, lineQuery, productID, l.Quantity, l.LineTotal); err != nil {
			return fmt.Errorf("insert quote line: %w", err)
		}
	}
	return nil
}

// List returns every quote with its products and lines, newest sequence first.
func (s *Store) List(ctx context.Context) ([]Quote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			q.id,
			q.sequence_number,
			q.created_at,
			q.client_id,
			q.status_id,
			cl.name,
			cl.company,
			cl.phone,
			cl.email,
			st.name,
			qp.id,
			qp.product_config_id,
			pt.name,
			pc.size,
			m.name,
			cal.caliber,
			qp.ink_id,
			qp.face_id,
			qp.die_id,
			d.kind,
			qp.bk,
			qp.foil,
			qp.embossing,
			qp.lamination,
			qp.uv_coating,
			qp.pigments,
			qp.pantones,
			qp.observation,
			ql.id,
			ql.quantity,
			ql.line_total,
			ql.approved
		FROM quotes q
		LEFT JOIN clients cl ON cl.id = q.client_id
		LEFT JOIN quote_statuses st ON st.id = q.status_id
		LEFT JOIN quote_products qp ON qp.quote_id = q.id
		LEFT JOIN product_configs pc ON pc.id = qp.product_config_id
		LEFT JOIN product_types pt ON pt.id = pc.product_type_id
		LEFT JOIN materials m ON m.id = pc.material_id
		LEFT JOIN calibers cal ON cal.id = pc.caliber_id
		LEFT JOIN dies d ON d.id = qp.die_id
		LEFT JOIN quote_lines ql ON ql.quote_product_id = qp.id
		ORDER BY q.sequence_number DESC, qp.id ASC, ql.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	flat := make([]Row, 0)
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.QuoteID, &r.SequenceNumber, &r.CreatedAt, &r.ClientID, &r.StatusID,
			&r.ClientName, &r.ClientCompany, &r.ClientPhone, &r.ClientEmail,
			&r.StatusName,
			&r.ProductID, &r.ProductConfigID, &r.ProductType, &r.Size, &r.Material, &r.Caliber,
			&r.InkID, &r.FaceID, &r.DieID, &r.DieKind,
			&r.Bk, &r.Foil, &r.Embossing, &r.Lamination, &r.UVCoating,
			&r.Pigments, &r.Pantones, &r.Observation,
			&r.LineID, &r.Quantity, &r.LineTotal, &r.Approved,
		); err != nil {
			return nil, fmt.Errorf("scan quote row: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote rows: %w", err)
	}

	return Aggregate(flat), nil
}

// UpdateStatus sets the status of every quote row carrying sequence.
func (s *Store) UpdateStatus(ctx context.Context, sequence, statusID int64) error {
	if sequence <= 0 {
		return apperr.Validation("sequence number is required")
	}
	if statusID <= 0 {
		return apperr.Validation("statusId is required")
	}

	var known bool
	if err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM quote_statuses WHERE id = ?)`), statusID).Scan(&known); err != nil {
		return fmt.Errorf("check quote status: %w", err)
	}
	if !known {
		return apperr.Validation("unknown statusId %d", statusID)
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`UPDATE quotes SET status_id = ? WHERE sequence_number = ?`), statusID, sequence)
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}
	if err := expectRows(res, "quote %d not found", sequence); err != nil {
		return err
	}

	s.log.Info("quote status updated", "sequence", sequence, "statusId", statusID)
	return nil
}

// SetLineApproval marks a line approved or rejected.
func (s *Store) SetLineApproval(ctx context.Context, lineID int64, approved bool) error {
	if lineID <= 0 {
		return apperr.Validation("line id is required")
	}

	state := ApprovalRejected
	if approved {
		state = ApprovalApproved
	}
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`UPDATE quote_lines SET approved = ? WHERE id = ?`), state.NullBool(), lineID)
	if err != nil {
		return fmt.Errorf("update line approval: %w", err)
	}
	return expectRows(res, "quote line %d not found", lineID)
}

// UpdateObservation replaces a product's observation. Nil or blank clears it.
func (s *Store) UpdateObservation(ctx context.Context, productID int64, observation *string) error {
	if productID <= 0 {
		return apperr.Validation("product id is required")
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`UPDATE quote_products SET observation = ? WHERE id = ?`), blankToNil(observation), productID)
	if err != nil {
		return fmt.Errorf("update product observation: %w", err)
	}
	return expectRows(res, "quote product %d not found", productID)
}

// Delete removes every quote carrying sequence along with its products and
// lines.
func (s *Store) Delete(ctx context.Context, sequence int64) error {
	if sequence <= 0 {
		return apperr.Validation("sequence number is required")
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		quoteIDs, err := s.queryIDs(ctx, tx, `SELECT id FROM quotes WHERE sequence_number = ?`, sequence)
		if err != nil {
			return fmt.Errorf("resolve quote ids: %w", err)
		}
		if len(quoteIDs) == 0 {
			return apperr.NotFound("quote %d not found", sequence)
		}

		productIDs, err := s.queryIDs(ctx, tx, `SELECT id FROM quote_products WHERE quote_id IN (`+db.Placeholders(len(quoteIDs))+`)`, toArgs(quoteIDs)...)
		if err != nil {
			return fmt.Errorf("resolve quote product ids: %w", err)
		}

		if len(productIDs) > 0 {
			q := s.dialect.Rebind(`DELETE FROM quote_lines WHERE quote_product_id IN (` + db.Placeholders(len(productIDs)) + `)`)
			if _, err := tx.ExecContext(ctx, q, toArgs(productIDs)...); err != nil {
				return fmt.Errorf("delete quote lines: %w", err)
			}
		}

		in := db.Placeholders(len(quoteIDs))
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM quote_products WHERE quote_id IN (`+in+`)`), toArgs(quoteIDs)...); err != nil {
			return fmt.Errorf("delete quote products: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM quotes WHERE id IN (`+in+`)`), toArgs(quoteIDs)...); err != nil {
			return fmt.Errorf("delete quotes: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("quote deleted", "sequence", sequence)
	return nil
}

func (s *Store) queryIDs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func expectRows(res sql.Result, format string, args ...any) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound(format, args...)
	}
	return nil
}

func toArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

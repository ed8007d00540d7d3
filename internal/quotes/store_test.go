package quotes

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/cotizador/internal/apperr"
	"github.com/Simplici0/cotizador/internal/db"
	"github.com/Simplici0/cotizador/internal/logger"
	"github.com/Simplici0/cotizador/internal/migrations"
	"github.com/Simplici0/cotizador/internal/seed"
)

// Seeded ids on a fresh database.
const (
	demoClientID      int64 = 1
	demoProductConfig int64 = 1
	dieTroquel        int64 = 2
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	database, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "quotes-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database, db.SQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(context.Background(), database, db.SQLite); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	return NewStore(database, db.SQLite, logger.Nop()), database
}

func line(quantity int64, total string) NewLine {
	return NewLine{Quantity: quantity, LineTotal: decimal.RequireFromString(total)}
}

func int64p(v int64) *int64 { return &v }
func boolp(v bool) *bool    { return &v }
func strp(v string) *string { return &v }

func sampleQuote() NewQuote {
	return NewQuote{
		ClientID: demoClientID,
		Products: []NewProduct{{
			ProductConfigID: demoProductConfig,
			InkID:           int64p(2),
			FaceID:          int64p(1),
			DieID:           int64p(dieTroquel),
			Foil:            boolp(true),
			Pantones:        int64p(2),
			Observation:     strp("Entrega en dos partes"),
			Lines:           []NewLine{line(1000, "800"), line(0, "100"), line(5000, "3500")},
		}},
	}
}

func countRows(t *testing.T, database *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := database.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

func TestCreateAndList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, sampleQuote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := store.Create(ctx, sampleQuote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second != first+1 {
		t.Fatalf("expected consecutive sequence numbers, got %d then %d", first, second)
	}

	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(quotes) != 2 || quotes[0].SequenceNumber != second {
		t.Fatalf("expected newest quote first, got %+v", quotes)
	}

	q := quotes[1]
	if q.StatusID != StatusPending || q.StatusLabel != LabelPending {
		t.Fatalf("expected pending quote, got %d %q", q.StatusID, q.StatusLabel)
	}
	if q.Client.Name != seed.DemoClientName {
		t.Fatalf("unexpected client %+v", q.Client)
	}
	if q.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
	if len(q.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(q.Products))
	}

	p := q.Products[0]
	if p.Name != seed.DemoProductType+" "+seed.DemoProductSize+" "+seed.DemoMaterial {
		t.Fatalf("unexpected product name %q", p.Name)
	}
	if p.Die != "Troquel" || p.Caliber != seed.DemoCaliber {
		t.Fatalf("unexpected die/caliber %q %q", p.Die, p.Caliber)
	}
	if p.Foil == nil || !*p.Foil || p.Bk != nil {
		t.Fatalf("unexpected decoration flags foil=%v bk=%v", p.Foil, p.Bk)
	}
	if p.Observation == nil || *p.Observation != "Entrega en dos partes" {
		t.Fatalf("unexpected observation %v", p.Observation)
	}
	if len(p.Lines) != 2 {
		t.Fatalf("expected invalid line to be dropped, got %d lines", len(p.Lines))
	}
	if !q.Total.Equal(decimal.NewFromInt(4300)) {
		t.Fatalf("expected total 4300, got %s", q.Total)
	}
}

func TestCreateValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	cases := map[string]NewQuote{
		"missing client": {Products: sampleQuote().Products},
		"no products":    {ClientID: demoClientID},
		"unknown client": {ClientID: 999, Products: sampleQuote().Products},
		"missing config": {ClientID: demoClientID, Products: []NewProduct{{Lines: []NewLine{line(1, "1")}}}},
	}
	for name, in := range cases {
		if _, err := store.Create(ctx, in); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestCreateRejectsProductWithoutValidLinesAtomically(t *testing.T) {
	store, database := newTestStore(t)
	ctx := context.Background()

	before, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	in := sampleQuote()
	in.Products = append(in.Products, NewProduct{
		ProductConfigID: demoProductConfig,
		Lines:           []NewLine{line(0, "10"), line(-5, "10"), line(10, "0")},
	})
	_, err = store.Create(ctx, in)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	after, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("expected quote count unchanged, got %d -> %d", len(before), len(after))
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM quote_products`); n != 0 {
		t.Fatalf("expected no products left behind, got %d", n)
	}

	seq, err := store.Create(ctx, sampleQuote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected rolled back sequence to be reused, got %d", seq)
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	store, database := newTestStore(t)
	ctx := context.Background()

	unknownConfig := sampleQuote()
	unknownConfig.Products[0].ProductConfigID = 9999

	unknownDie := sampleQuote()
	unknownDie.Products = append(unknownDie.Products, NewProduct{
		ProductConfigID: demoProductConfig,
		DieID:           int64p(9999),
		Lines:           []NewLine{line(100, "50")},
	})

	for name, in := range map[string]NewQuote{"config": unknownConfig, "die": unknownDie} {
		_, err := store.Create(ctx, in)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if !strings.Contains(apperr.Message(err), "9999") {
			t.Fatalf("%s: expected message to name the id, got %q", name, apperr.Message(err))
		}
	}

	if n := countRows(t, database, `SELECT COUNT(*) FROM quotes`); n != 0 {
		t.Fatalf("expected no quotes persisted, got %d", n)
	}
}

func TestCreateReportsStorageFailureAsInternal(t *testing.T) {
	store, database := newTestStore(t)
	if err := database.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}

	_, err := store.Create(context.Background(), sampleQuote())
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if msg := apperr.Message(err); msg != "internal error" {
		t.Fatalf("expected generic message, got %q", msg)
	}
	if !strings.Contains(err.Error(), "begin transaction") {
		t.Fatalf("expected cause to be kept for logs, got %v", err)
	}
}

func TestDeleteRemovesChildren(t *testing.T) {
	store, database := newTestStore(t)
	ctx := context.Background()

	keep, err := store.Create(ctx, sampleQuote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	drop, err := store.Create(ctx, sampleQuote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var quoteID int64
	if err := database.QueryRow(`SELECT id FROM quotes WHERE sequence_number = ?`, drop).Scan(&quoteID); err != nil {
		t.Fatalf("resolve quote id: %v", err)
	}

	if err := store.Delete(ctx, drop); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if n := countRows(t, database, `SELECT COUNT(*) FROM quote_products WHERE quote_id = ?`, quoteID); n != 0 {
		t.Fatalf("expected no residual products, got %d", n)
	}
	if n := countRows(t, database, `
		SELECT COUNT(*) FROM quote_lines ql
		LEFT JOIN quote_products qp ON qp.id = ql.quote_product_id
		WHERE qp.id IS NULL
	`); n != 0 {
		t.Fatalf("expected no orphan lines, got %d", n)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM quote_lines`); n != 2 {
		t.Fatalf("expected the kept quote's 2 lines, got %d", n)
	}

	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(quotes) != 1 || quotes[0].SequenceNumber != keep {
		t.Fatalf("unexpected remaining quotes: %+v", quotes)
	}

	if err := store.Delete(ctx, drop); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	seq, err := store.Create(ctx, sampleQuote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.UpdateStatus(ctx, seq, StatusRejected); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if quotes[0].StatusID != StatusRejected || quotes[0].StatusLabel != LabelRejected {
		t.Fatalf("unexpected status %d %q", quotes[0].StatusID, quotes[0].StatusLabel)
	}

	if err := store.UpdateStatus(ctx, seq, 99); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestUpdateStatusNotFoundMutatesNothing(t *testing.T) {
	store, database := newTestStore(t)
	ctx := context.Background()

	seq, err := store.Create(ctx, sampleQuote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.UpdateStatus(ctx, seq+100, StatusApproved); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM quotes WHERE status_id <> ?`, StatusPending); n != 0 {
		t.Fatalf("expected no status changes, got %d", n)
	}
}

func TestSetLineApproval(t *testing.T) {
	store, database := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, sampleQuote()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	var lineID int64
	if err := database.QueryRow(`SELECT MIN(id) FROM quote_lines`).Scan(&lineID); err != nil {
		t.Fatalf("resolve line id: %v", err)
	}

	if err := store.SetLineApproval(ctx, lineID, false); err != nil {
		t.Fatalf("SetLineApproval: %v", err)
	}
	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	lines := quotes[0].Products[0].Lines
	if lines[0].Approval != ApprovalRejected || lines[1].Approval != ApprovalUnset {
		t.Fatalf("unexpected approvals %v %v", lines[0].Approval, lines[1].Approval)
	}

	if err := store.SetLineApproval(ctx, lineID+1000, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateObservation(t *testing.T) {
	store, database := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, sampleQuote()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	var productID int64
	if err := database.QueryRow(`SELECT id FROM quote_products`).Scan(&productID); err != nil {
		t.Fatalf("resolve product id: %v", err)
	}

	if err := store.UpdateObservation(ctx, productID, strp("   ")); err != nil {
		t.Fatalf("UpdateObservation: %v", err)
	}
	if n := countRows(t, database, `SELECT COUNT(*) FROM quote_products WHERE observation IS NULL`); n != 1 {
		t.Fatalf("expected blank observation stored as NULL")
	}

	if err := store.UpdateObservation(ctx, productID, strp("Urgente")); err != nil {
		t.Fatalf("UpdateObservation: %v", err)
	}
	quotes, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if obs := quotes[0].Products[0].Observation; obs == nil || *obs != "Urgente" {
		t.Fatalf("unexpected observation %v", obs)
	}

	if err := store.UpdateObservation(ctx, productID+1000, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

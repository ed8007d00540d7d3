package quotes

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one record of the quote list join. Product and line columns are null
// when the outer join found nothing.
type Row struct {
	QuoteID        int64
	SequenceNumber int64
	CreatedAt      time.Time
	ClientID       int64
	StatusID       int64

	ClientName    sql.NullString
	ClientCompany sql.NullString
	ClientPhone   sql.NullString
	ClientEmail   sql.NullString
	StatusName    sql.NullString

	ProductID       sql.NullInt64
	ProductConfigID sql.NullInt64
	ProductType     sql.NullString
	Size            sql.NullString
	Material        sql.NullString
	Caliber         sql.NullString
	InkID           sql.NullInt64
	FaceID          sql.NullInt64
	DieID           sql.NullInt64
	DieKind         sql.NullString
	Bk              sql.NullBool
	Foil            sql.NullBool
	Embossing       sql.NullBool
	Lamination      sql.NullBool
	UVCoating       sql.NullBool
	Pigments        sql.NullInt64
	Pantones        sql.NullInt64
	Observation     sql.NullString

	LineID    sql.NullInt64
	Quantity  sql.NullInt64
	LineTotal decimal.NullDecimal
	Approved  sql.NullBool
}

// Aggregate folds rows ordered by (sequence desc, product id, line id) into
// quote trees, in the order quotes are first seen. Rows sharing a sequence
// number are merged into one quote.
func Aggregate(rows []Row) []Quote {
	quotes := make([]Quote, 0)
	bySequence := make(map[int64]int)
	productIndex := make([]map[int64]int, 0)

	for _, r := range rows {
		qi, ok := bySequence[r.SequenceNumber]
		if !ok {
			quotes = append(quotes, newQuote(r))
			productIndex = append(productIndex, make(map[int64]int))
			qi = len(quotes) - 1
			bySequence[r.SequenceNumber] = qi
		}
		if !r.ProductID.Valid {
			continue
		}

		q := &quotes[qi]
		pi, ok := productIndex[qi][r.ProductID.Int64]
		if !ok {
			q.Products = append(q.Products, newProduct(r))
			pi = len(q.Products) - 1
			productIndex[qi][r.ProductID.Int64] = pi
		}
		if !r.LineID.Valid {
			continue
		}

		p := &q.Products[pi]
		total := r.LineTotal.Decimal
		p.Lines = append(p.Lines, Line{
			ID:        r.LineID.Int64,
			Quantity:  r.Quantity.Int64,
			LineTotal: total,
			Approval:  ApprovalFromNull(r.Approved),
		})
		p.Subtotal = p.Subtotal.Add(total)
	}

	for i := range quotes {
		total := decimal.Zero
		for _, p := range quotes[i].Products {
			total = total.Add(p.Subtotal)
		}
		quotes[i].Total = total
	}

	return quotes
}

// NormalizeStatus maps a stored status name onto one of the three labels
// shown to users.
func NormalizeStatus(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "aprobad"):
		return LabelApproved
	case strings.Contains(lower, "rechazad"):
		return LabelRejected
	}
	return LabelPending
}

// DisplayName joins product type, size and material, skipping empty parts.
func DisplayName(productType, size, material string, productConfigID int64) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{productType, size, material} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Product #%d", productConfigID)
	}
	return strings.Join(parts, " ")
}

func newQuote(r Row) Quote {
	return Quote{
		ID:             r.QuoteID,
		SequenceNumber: r.SequenceNumber,
		CreatedAt:      r.CreatedAt,
		StatusID:       r.StatusID,
		StatusLabel:    NormalizeStatus(r.StatusName.String),
		ClientID:       r.ClientID,
		Client: ClientInfo{
			Name:    r.ClientName.String,
			Company: r.ClientCompany.String,
			Phone:   r.ClientPhone.String,
			Email:   r.ClientEmail.String,
		},
		Products: make([]Product, 0),
		Total:    decimal.Zero,
	}
}

func newProduct(r Row) Product {
	return Product{
		ID:              r.ProductID.Int64,
		ProductConfigID: r.ProductConfigID.Int64,
		Name:            DisplayName(r.ProductType.String, r.Size.String, r.Material.String, r.ProductConfigID.Int64),
		ProductType:     r.ProductType.String,
		Size:            r.Size.String,
		Material:        r.Material.String,
		Caliber:         r.Caliber.String,
		InkID:           int64Ptr(r.InkID),
		FaceID:          int64Ptr(r.FaceID),
		DieID:           int64Ptr(r.DieID),
		Die:             r.DieKind.String,
		Bk:              boolPtr(r.Bk),
		Foil:            boolPtr(r.Foil),
		Embossing:       boolPtr(r.Embossing),
		Lamination:      boolPtr(r.Lamination),
		UVCoating:       boolPtr(r.UVCoating),
		Pigments:        int64Ptr(r.Pigments),
		Pantones:        int64Ptr(r.Pantones),
		Observation:     stringPtr(r.Observation),
		Lines:           make([]Line, 0),
		Subtotal:        decimal.Zero,
	}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

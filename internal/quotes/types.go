// Package quotes persists quotes and rebuilds them from flat joined rows.
package quotes

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote status ids as seeded in quote_statuses.
const (
	StatusPending    int64 = 1
	StatusInProgress int64 = 2
	StatusApproved   int64 = 3
	StatusRejected   int64 = 4
)

// Normalized status labels shown to users; see NormalizeStatus.
const (
	LabelPending  = "Pendiente"
	LabelApproved = "Aprobada"
	LabelRejected = "Rechazada"
)

// ApprovalState is the review state of a quote line.
type ApprovalState int

const (
	ApprovalUnset ApprovalState = iota
	ApprovalApproved
	ApprovalRejected
)

func (a ApprovalState) String() string {
	switch a {
	case ApprovalApproved:
		return "approved"
	case ApprovalRejected:
		return "rejected"
	}
	return "unset"
}

func (a ApprovalState) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *ApprovalState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode approval state: %w", err)
	}
	switch s {
	case "", "unset":
		*a = ApprovalUnset
	case "approved":
		*a = ApprovalApproved
	case "rejected":
		*a = ApprovalRejected
	default:
		return fmt.Errorf("unknown approval state %q", s)
	}
	return nil
}

// ApprovalFromNull maps the stored nullable column onto an ApprovalState.
func ApprovalFromNull(v sql.NullBool) ApprovalState {
	if !v.Valid {
		return ApprovalUnset
	}
	if v.Bool {
		return ApprovalApproved
	}
	return ApprovalRejected
}

// NullBool is the column value for a.
func (a ApprovalState) NullBool() sql.NullBool {
	switch a {
	case ApprovalApproved:
		return sql.NullBool{Bool: true, Valid: true}
	case ApprovalRejected:
		return sql.NullBool{Bool: false, Valid: true}
	}
	return sql.NullBool{}
}

// ClientInfo holds the client display fields embedded in a quote.
type ClientInfo struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Line is one quantity/total pair of a quoted product.
type Line struct {
	ID        int64           `json:"id"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	Approval  ApprovalState   `json:"approval"`
}

// Product is a quoted product configuration with its lines.
type Product struct {
	ID              int64           `json:"id"`
	ProductConfigID int64           `json:"productConfigId"`
	Name            string          `json:"name"`
	ProductType     string          `json:"productType"`
	Size            string          `json:"size"`
	Material        string          `json:"material"`
	Caliber         string          `json:"caliber"`
	InkID           *int64          `json:"inkId"`
	FaceID          *int64          `json:"faceId"`
	DieID           *int64          `json:"dieId"`
	Die             string          `json:"die"`
	Bk              *bool           `json:"bk"`
	Foil            *bool           `json:"foil"`
	Embossing       *bool           `json:"embossing"`
	Lamination      *bool           `json:"lamination"`
	UVCoating       *bool           `json:"uvCoating"`
	Pigments        *int64          `json:"pigments"`
	Pantones        *int64          `json:"pantones"`
	Observation     *string         `json:"observation"`
	Lines           []Line          `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// Quote is the aggregated view of a quote returned by Store.List.
type Quote struct {
	ID             int64           `json:"id"`
	SequenceNumber int64           `json:"sequenceNumber"`
	CreatedAt      time.Time       `json:"date"`
	StatusID       int64           `json:"statusId"`
	StatusLabel    string          `json:"statusLabel"`
	ClientID       int64           `json:"clientId"`
	Client         ClientInfo      `json:"client"`
	Products       []Product       `json:"products"`
	Total          decimal.Decimal `json:"total"`
}

// NewLine is a requested quantity and its client-computed total.
type NewLine struct {
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Valid reports whether the line is kept on creation.
func (l NewLine) Valid() bool {
	return l.Quantity > 0 && l.LineTotal.IsPositive()
}

// NewProduct is one product of a NewQuote.
type NewProduct struct {
	ProductConfigID int64     `json:"productConfigId" validate:"required,gt=0"`
	InkID           *int64    `json:"inkId" validate:"omitempty,gt=0"`
	FaceID          *int64    `json:"faceId" validate:"omitempty,gt=0"`
	DieID           *int64    `json:"dieId" validate:"omitempty,gt=0"`
	Bk              *bool     `json:"bk"`
	Foil            *bool     `json:"foil"`
	Embossing       *bool     `json:"embossing"`
	Lamination      *bool     `json:"lamination"`
	UVCoating       *bool     `json:"uvCoating"`
	Pigments        *int64    `json:"pigments" validate:"omitempty,gte=0"`
	Pantones        *int64    `json:"pantones" validate:"omitempty,gte=0"`
	Observation     *string   `json:"observation"`
	Lines           []NewLine `json:"lines"`
}

// NewQuote is the input of Store.Create. Lines with a non-positive quantity or
// total are dropped rather than rejected.
type NewQuote struct {
	ClientID int64        `json:"clientId" validate:"required,gt=0"`
	Products []NewProduct `json:"products" validate:"required,min=1,dive"`
}

package indexer

import (
	"strings"
	"time"

	"github.com/denysvitali/fatture/pkg/models"
)

// Document is the search representation of an invoice.
type Document struct {
	ID           uint      `json:"id"`
	Fingerprint  string    `json:"fingerprint"`
	Number       *string   `json:"number,omitempty"`
	Date         string    `json:"date,omitempty"`
	DueDate      string    `json:"dueDate,omitempty"`
	Issuer       *string   `json:"issuer,omitempty"`
	IssuerVATID  *string   `json:"issuerVatId,omitempty"`
	Customer     *string   `json:"customer,omitempty"`
	Total        *string   `json:"total,omitempty"`
	Currency     *string   `json:"currency,omitempty"`
	DocumentType *string   `json:"documentType,omitempty"`
	Paid         bool      `json:"paid"`
	Text         string    `json:"text"`
	IndexedAt    time.Time `json:"indexedAt"`
}

func NewDocument(inv *models.Invoice, indexedAt time.Time) Document {
	d := Document{
		ID:           inv.ID,
		Fingerprint:  inv.Fingerprint,
		Number:       inv.Number,
		Issuer:       inv.Issuer,
		IssuerVATID:  inv.IssuerVATID,
		Customer:     inv.Customer,
		Currency:     inv.Currency,
		DocumentType: inv.DocumentType,
		Paid:         inv.Paid,
		IndexedAt:    indexedAt,
	}
	if inv.Date != nil {
		d.Date = inv.Date.Format(time.DateOnly)
	}
	if inv.DueDate != nil {
		d.DueDate = inv.DueDate.Format(time.DateOnly)
	}
	if inv.Total.Valid {
		total := inv.Total.Decimal.StringFixed(2)
		d.Total = &total
	}

	var text []string
	if inv.Reason != nil {
		text = append(text, *inv.Reason)
	}
	for _, l := range inv.Lines {
		text = append(text, l.Description)
	}
	d.Text = strings.Join(text, "\n")
	return d
}

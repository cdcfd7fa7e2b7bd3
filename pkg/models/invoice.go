package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the normalized record of one imported FatturaPA document.
// Fingerprint is the only identity used for deduplication.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Fingerprint string `gorm:"size:64;not null;uniqueIndex" json:"fingerprint"`

	Number  *string             `gorm:"size:64;index" json:"number,omitempty"`
	Date    *time.Time          `gorm:"type:date" json:"date,omitempty"`
	Issuer  *string             `gorm:"size:255;index" json:"issuer,omitempty"`
	Total   decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"total"`
	Paid    bool                `gorm:"not null;default:false" json:"paid"`
	DueDate *time.Time          `gorm:"type:date;index" json:"dueDate,omitempty"`

	DocumentType *string `gorm:"size:8" json:"documentType,omitempty"`
	Currency     *string `gorm:"size:3" json:"currency,omitempty"`
	Reason       *string `gorm:"type:text" json:"reason,omitempty"`
	IssuerVATID  *string `gorm:"size:32" json:"issuerVatId,omitempty"`
	Customer     *string `gorm:"size:255" json:"customer,omitempty"`

	RawXML string `gorm:"type:text" json:"-"`

	Lines        []LineItem   `gorm:"constraint:OnDelete:CASCADE" json:"lines"`
	TaxSummaries []TaxSummary `gorm:"constraint:OnDelete:CASCADE" json:"taxSummaries"`
	Payments     []Payment    `gorm:"constraint:OnDelete:CASCADE" json:"payments,omitempty"`
	Attachments  []Attachment `gorm:"constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// Label is used in logs: number and issuer when known, the fingerprint otherwise.
func (i *Invoice) Label() string {
	if i.Number == nil {
		return i.Fingerprint
	}
	if i.Issuer == nil {
		return *i.Number
	}
	return fmt.Sprintf("%s (%s)", *i.Number, *i.Issuer)
}

type LineItem struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	InvoiceID uint `gorm:"index;not null" json:"-"`

	Description string              `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal     `gorm:"type:numeric(21,8);not null" json:"quantity"`
	UnitPrice   decimal.Decimal     `gorm:"type:numeric(21,8);not null" json:"unitPrice"`
	Amount      decimal.Decimal     `gorm:"type:numeric(21,8);not null" json:"amount"`
	LineNumber  *int                `json:"lineNumber,omitempty"`
	Unit        *string             `gorm:"size:16" json:"unit,omitempty"`
	VATRate     decimal.NullDecimal `gorm:"type:numeric(6,2)" json:"vatRate"`
	Nature      *string             `gorm:"size:8" json:"nature,omitempty"`
}

func (LineItem) TableName() string { return "invoice_lines" }

type TaxSummary struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	InvoiceID uint `gorm:"index;not null" json:"-"`

	Rate          decimal.NullDecimal `gorm:"type:numeric(6,2)" json:"rate"`
	TaxableAmount decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"taxableAmount"`
	Tax           decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"tax"`
	Chargeability *string             `gorm:"size:1" json:"chargeability,omitempty"`
	Nature        *string             `gorm:"size:8" json:"nature,omitempty"`
}

func (TaxSummary) TableName() string { return "invoice_tax_summaries" }

// Payment is one DettaglioPagamento entry.
type Payment struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	InvoiceID uint `gorm:"index;not null" json:"-"`

	Terms   *string             `gorm:"size:8" json:"terms,omitempty"`
	Method  *string             `gorm:"size:8" json:"method,omitempty"`
	DueDate *time.Time          `gorm:"type:date" json:"dueDate,omitempty"`
	Amount  decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"amount"`
}

func (Payment) TableName() string { return "invoice_payments" }

type Attachment struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	InvoiceID uint `gorm:"index;not null" json:"-"`

	Name   string  `gorm:"size:255" json:"name"`
	Format *string `gorm:"size:16" json:"format,omitempty"`
	// Data is the base64 payload as found in the document.
	Data string `gorm:"type:text" json:"-"`
}

func (Attachment) TableName() string { return "invoice_attachments" }

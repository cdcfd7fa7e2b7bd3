// Package fatturapa extracts a normalized invoice record from FatturaPA XML.
//
// Fields are looked up by local name anywhere in the document, so prefixed,
// unprefixed and slightly off-schema files are all accepted. Only a document
// that cannot be parsed at all is an error.
package fatturapa

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/xmltree"
)

var log = logrus.StandardLogger().WithField("package", "fatturapa")

var ErrMalformed = errors.New("malformed document")

const (
	dateLayout         = "2006-01-02"
	defaultDescription = "N/D"
)

var defaultQuantity = decimal.NewFromInt(1)

// Fingerprint is the hex SHA-256 of the UTF-8 text. It is computed on the
// decoded text, so the same bytes decoded differently fingerprint differently.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Extract parses text and returns the invoice it describes, with the
// fingerprint and raw text already set.
func Extract(text string) (*models.Invoice, error) {
	fingerprint := Fingerprint(text)

	root, err := xmltree.ParseString(strings.TrimPrefix(text, "\ufeff"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	inv := &models.Invoice{
		Fingerprint: fingerprint,
		RawXML:      text,
	}
	inv.Number = textOf(root, "Numero")
	inv.Date = dateOf(root, "Data")
	inv.Total = decimalOf(root, "ImportoTotaleDocumento")
	inv.DocumentType = textOf(root, "TipoDocumento")
	inv.Currency = textOf(root, "Divisa")
	inv.Reason = joinedText(root, "Causale")

	if cedente := root.FindFirst("CedentePrestatore"); cedente != nil {
		inv.Issuer = partyName(cedente)
		inv.IssuerVATID = vatID(cedente)
	}
	if cessionario := root.FindFirst("CessionarioCommittente"); cessionario != nil {
		inv.Customer = partyName(cessionario)
	}

	inv.Lines = []models.LineItem{}
	for _, n := range root.FindAll("DettaglioLinee") {
		inv.Lines = append(inv.Lines, lineItem(n))
	}
	inv.TaxSummaries = []models.TaxSummary{}
	for _, n := range root.FindAll("DatiRiepilogo") {
		inv.TaxSummaries = append(inv.TaxSummaries, taxSummary(n))
	}
	for _, n := range root.FindAll("DettaglioPagamento") {
		inv.Payments = append(inv.Payments, payment(n))
	}
	for _, n := range root.FindAll("Allegati") {
		inv.Attachments = append(inv.Attachments, attachment(n))
	}
	return inv, nil
}

func lineItem(n *xmltree.Node) models.LineItem {
	l := models.LineItem{
		Description: defaultDescription,
		Quantity:    defaultQuantity,
		UnitPrice:   decimal.Zero,
		Amount:      decimal.Zero,
	}
	if v, ok := n.ChildText("Descrizione"); ok && v != "" {
		l.Description = v
	}
	if v, ok := childDecimal(n, "Quantita"); ok {
		l.Quantity = v
	}
	if v, ok := childDecimal(n, "PrezzoUnitario"); ok {
		l.UnitPrice = v
	}
	if v, ok := childDecimal(n, "PrezzoTotale"); ok {
		l.Amount = v
	}
	if v, ok := n.ChildText("NumeroLinea"); ok {
		if i, err := strconv.Atoi(v); err == nil {
			l.LineNumber = &i
		}
	}
	l.Unit = childString(n, "UnitaMisura")
	l.VATRate = childNullDecimal(n, "AliquotaIVA")
	l.Nature = childString(n, "Natura")
	return l
}

func taxSummary(n *xmltree.Node) models.TaxSummary {
	return models.TaxSummary{
		Rate:          childNullDecimal(n, "AliquotaIVA"),
		TaxableAmount: childNullDecimal(n, "ImponibileImporto"),
		Tax:           childNullDecimal(n, "Imposta"),
		Chargeability: childString(n, "EsigibilitaIVA"),
		Nature:        childString(n, "Natura"),
	}
}

func payment(n *xmltree.Node) models.Payment {
	p := models.Payment{
		Method: childString(n, "ModalitaPagamento"),
		Amount: childNullDecimal(n, "ImportoPagamento"),
	}
	if v, ok := n.ChildText("DataScadenzaPagamento"); ok {
		p.DueDate = parseDate(v)
	}
	if n.Parent != nil {
		p.Terms = childString(n.Parent, "CondizioniPagamento")
	}
	return p
}

func attachment(n *xmltree.Node) models.Attachment {
	a := models.Attachment{Format: childString(n, "FormatoAttachment")}
	a.Name, _ = n.ChildText("NomeAttachment")
	data, _ := n.ChildText("Attachment")
	a.Data = strings.Join(strings.Fields(data), "")
	return a
}

// partyName returns Denominazione, or "Nome Cognome" for individuals.
func partyName(party *xmltree.Node) *string {
	if v := textOf(party, "Denominazione"); v != nil {
		return v
	}
	var parts []string
	for _, tag := range []string{"Nome", "Cognome"} {
		if v, ok := party.FirstText(tag); ok && v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " ")
	return &name
}

func vatID(party *xmltree.Node) *string {
	id := party.FindFirst("IdFiscaleIVA")
	if id == nil {
		return nil
	}
	country, _ := id.ChildText("IdPaese")
	code, _ := id.ChildText("IdCodice")
	if code == "" {
		return nil
	}
	v := country + code
	return &v
}

func textOf(n *xmltree.Node, name string) *string {
	v, ok := n.FirstText(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func joinedText(n *xmltree.Node, name string) *string {
	var parts []string
	for _, c := range n.FindAll(name) {
		if v := strings.TrimSpace(c.Text()); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	v := strings.Join(parts, "\n")
	return &v
}

func dateOf(n *xmltree.Node, name string) *time.Time {
	v, ok := n.FirstText(name)
	if !ok {
		return nil
	}
	return parseDate(v)
}

func parseDate(v string) *time.Time {
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		log.Debugf("ignoring malformed date %q: %v", v, err)
		return nil
	}
	return &d
}

func decimalOf(n *xmltree.Node, name string) decimal.NullDecimal {
	v, ok := n.FirstText(name)
	if !ok {
		return decimal.NullDecimal{}
	}
	return parseNullDecimal(v)
}

func childString(n *xmltree.Node, name string) *string {
	v, ok := n.ChildText(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func childDecimal(n *xmltree.Node, name string) (decimal.Decimal, bool) {
	v, ok := n.ChildText(name)
	if !ok {
		return decimal.Decimal{}, false
	}
	d := parseNullDecimal(v)
	return d.Decimal, d.Valid
}

func childNullDecimal(n *xmltree.Node, name string) decimal.NullDecimal {
	v, ok := n.ChildText(name)
	if !ok {
		return decimal.NullDecimal{}
	}
	return parseNullDecimal(v)
}

func parseNullDecimal(v string) decimal.NullDecimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		log.Debugf("ignoring malformed amount %q: %v", v, err)
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

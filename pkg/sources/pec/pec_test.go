package pec_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/fatture/pkg/importer"
	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/sources/pec"
)

func TestMain(m *testing.M) {
	logrus.StandardLogger().SetLevel(logrus.DebugLevel)
	os.Exit(m.Run())
}

const invoiceXML = `<?xml version="1.0" encoding="UTF-8"?><FatturaElettronica><Numero>1</Numero></FatturaElettronica>`

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// pecMessage mimics a PEC delivery: the original message travels as an
// embedded postacert.eml next to the provider's certification files.
func pecMessage() string {
	inner := `From: fornitore@pec.example.it
To: cliente@pec.example.it
Subject: Fattura 1
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

In allegato la fattura.
--inner
Content-Type: application/pkcs7-mime
Content-Transfer-Encoding: base64
Content-Disposition: attachment; filename="IT01234567890_FPR12.xml.p7m"

` + b64("signed") + `
--inner
Content-Type: text/xml; name="IT01234567890_FPR13.xml"
Content-Transfer-Encoding: base64

` + b64(invoiceXML) + `
--inner--
`
	outer := `From: posta-certificata@pec.example.it
To: cliente@pec.example.it
Subject: POSTA CERTIFICATA: Fattura 1
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: text/plain; charset=utf-8

Messaggio di posta certificata.
--outer
Content-Type: application/xml
Content-Disposition: attachment; filename="daticert.xml"

<postacert/>
--outer
Content-Type: message/rfc822
Content-Disposition: attachment; filename="postacert.eml"

` + inner + `
--outer
Content-Type: application/xml
Content-Disposition: attachment; filename="Segnatura.xml"

<Segnatura/>
--outer--
`
	return crlf(outer)
}

func plainMessage(body string) string {
	return crlf(`From: a@example.it
To: b@example.it
Subject: hello
Content-Type: text/plain; charset=utf-8

` + body + `
`)
}

func TestAttachments(t *testing.T) {
	atts, err := pec.Attachments([]byte(pecMessage()))
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "IT01234567890_FPR12.xml.p7m", atts[0].Name)
	assert.Equal(t, []byte("signed"), atts[0].Content)
	assert.Equal(t, "IT01234567890_FPR13.xml", atts[1].Name)
	assert.Equal(t, invoiceXML, string(atts[1].Content))
}

func TestAttachments_None(t *testing.T) {
	atts, err := pec.Attachments([]byte(plainMessage("nothing here")))
	require.NoError(t, err)
	assert.Empty(t, atts)
}

func TestIsInvoiceAttachment(t *testing.T) {
	assert.True(t, pec.IsInvoiceAttachment("IT01_FPR12.xml"))
	assert.True(t, pec.IsInvoiceAttachment("IT01_FPR12.XML.P7M"))
	assert.False(t, pec.IsInvoiceAttachment("daticert.xml"))
	assert.False(t, pec.IsInvoiceAttachment("DatiCert.XML"))
	assert.False(t, pec.IsInvoiceAttachment("segnatura.xml"))
	assert.False(t, pec.IsInvoiceAttachment("smime.p7s"))
	assert.False(t, pec.IsInvoiceAttachment("fattura.pdf"))
}

type fakeMailbox struct {
	messages map[uint32]string
	unseen   []uint32
	all      []uint32
	fetchErr map[uint32]error
	listErr  error
	seen     []uint32
}

func (f *fakeMailbox) ListMessages(_ context.Context, filter pec.Filter) ([]uint32, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if filter.Unseen {
		return f.unseen, nil
	}
	return f.all, nil
}

func (f *fakeMailbox) FetchMessage(_ context.Context, uid uint32) ([]byte, error) {
	if err := f.fetchErr[uid]; err != nil {
		return nil, err
	}
	return []byte(f.messages[uid]), nil
}

func (f *fakeMailbox) MarkSeen(_ context.Context, uid uint32) error {
	f.seen = append(f.seen, uid)
	return nil
}

func (f *fakeMailbox) Close() error { return nil }

func newMailbox() *fakeMailbox {
	return &fakeMailbox{
		messages: map[uint32]string{
			10: pecMessage(),
			11: plainMessage("hi"),
			12: pecMessage(),
			13: pecMessage(),
		},
		unseen:   []uint32{11, 12, 13},
		all:      []uint32{10, 11, 12, 13},
		fetchErr: map[uint32]error{13: errors.New("connection reset")},
	}
}

func TestCollector_Collect(t *testing.T) {
	mb := newMailbox()
	coll, err := pec.NewCollector(mb).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, coll.Items, 2)
	assert.Equal(t, "12/IT01234567890_FPR12.xml.p7m", coll.Items[0].Name)
	assert.Equal(t, "12/IT01234567890_FPR13.xml", coll.Items[1].Name)
	assert.False(t, coll.Items[1].IsText)

	require.Len(t, coll.Failures, 1)
	assert.Equal(t, "message 13", coll.Failures[0].Source)
	assert.Equal(t, importer.TransportError, coll.Failures[0].Kind)

	assert.Equal(t, "12", coll.Items[0].Group)
	assert.Equal(t, []string{"11", "12"}, coll.Groups)
	assert.Empty(t, mb.seen)
}

func TestCollector_Ack(t *testing.T) {
	mb := newMailbox()
	c := pec.NewCollector(mb)
	require.NoError(t, c.Ack(context.Background(), "12"))
	assert.Equal(t, []uint32{12}, mb.seen)
	assert.Error(t, c.Ack(context.Background(), "message 12"))
}

// passThrough treats the signed attachment as already unwrapped.
type passThrough struct{}

func (passThrough) Unwrap(_ context.Context, b []byte) ([]byte, error) {
	if string(b) == "signed" {
		return []byte(invoiceXML), nil
	}
	return b, nil
}

type persister struct {
	err    error
	stored map[string]*models.Invoice
}

func (p *persister) Persist(_ context.Context, inv *models.Invoice) (*models.Invoice, bool, error) {
	if p.err != nil {
		return nil, false, p.err
	}
	if existing, ok := p.stored[inv.Fingerprint]; ok {
		return existing, false, nil
	}
	inv.ID = uint(len(p.stored) + 1)
	p.stored[inv.Fingerprint] = inv
	return inv, true, nil
}

func TestImport_MarksSeenAfterStore(t *testing.T) {
	mb := newMailbox()
	p := &persister{stored: map[string]*models.Invoice{}}
	imp := importer.New(p, importer.WithUnwrapper(passThrough{}))

	report, err := imp.Run(context.Background(), pec.NewCollector(mb))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.SkippedDuplicates)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "message 13", report.Errors[0].Source)
	assert.Equal(t, []uint32{11, 12}, mb.seen)
}

func TestImport_StoreFailureKeepsMessageUnseen(t *testing.T) {
	mb := newMailbox()
	imp := importer.New(&persister{err: errors.New("database is locked")}, importer.WithUnwrapper(passThrough{}))

	report, err := imp.Run(context.Background(), pec.NewCollector(mb))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, importer.StoreError, report.Errors[0].Kind)
	assert.Equal(t, importer.StoreError, report.Errors[1].Kind)
	assert.Equal(t, "message 13", report.Errors[2].Source)

	// 11 carries no invoice, so nothing of it can be lost
	assert.Equal(t, []uint32{11}, mb.seen)
	assert.NotContains(t, mb.seen, uint32(12))
}

func TestImport_EnvelopeFailureKeepsMessageUnseen(t *testing.T) {
	mb := newMailbox()
	p := &persister{stored: map[string]*models.Invoice{}}
	imp := importer.New(p)

	report, err := imp.Run(context.Background(), pec.NewCollector(mb))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, importer.EnvelopeError, report.Errors[0].Kind)
	assert.NotContains(t, mb.seen, uint32(12))
}

func TestCollector_SearchFails(t *testing.T) {
	mb := newMailbox()
	mb.listErr = errors.New("BAD command")
	_, err := pec.NewCollector(mb).Collect(context.Background())
	require.Error(t, err)
	var ce *importer.CollectError
	assert.True(t, errors.As(err, &ce))
}

func TestCollector_Count(t *testing.T) {
	mb := newMailbox()
	delete(mb.fetchErr, 13)
	messages, invoices, err := pec.NewCollector(mb).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, messages)
	assert.Equal(t, 3, invoices)
	assert.Empty(t, mb.seen)
}

func TestIMAP_E2E(t *testing.T) {
	if os.Getenv("E2E_TEST") != "true" {
		t.Skip("skipping test; E2E_TEST is not set")
	}
	mb, err := pec.Dial(context.Background(), pec.Config{
		Server:   os.Getenv("PEC_SERVER"),
		User:     os.Getenv("PEC_USER"),
		Password: os.Getenv("PEC_PASSWORD"),
	})
	require.NoError(t, err)
	defer mb.Close()

	messages, invoices, err := pec.NewCollector(mb).Count(context.Background())
	require.NoError(t, err)
	t.Logf("%d messages, %d with invoices", messages, invoices)
}

func TestDial_RequiresServer(t *testing.T) {
	_, err := pec.Dial(context.Background(), pec.Config{User: "u"})
	assert.Error(t, err)
}

package archive_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/fatture/pkg/archive"
	"github.com/denysvitali/fatture/pkg/archive/fs"
	"github.com/denysvitali/fatture/pkg/importer"
	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/xmltree"
)

func TestMain(m *testing.M) {
	logrus.StandardLogger().SetLevel(logrus.DebugLevel)
	os.Exit(m.Run())
}

func ptr[T any](v T) *T { return &v }

func TestPath(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		inv  models.Invoice
		root string
		want string
	}{
		{
			name: "complete",
			inv:  models.Invoice{Date: &d, Issuer: ptr("Forniture Rossi S.r.l."), Number: ptr("42")},
			root: "/fatture",
			want: "/fatture/2024/03/Forniture_Rossi_S.r.l./2024-03-05_42.xml",
		},
		{
			name: "slashes in number",
			inv:  models.Invoice{Date: &d, Issuer: ptr("Rossi"), Number: ptr("FT/2024/42")},
			root: "archive",
			want: "archive/2024/03/Rossi/2024-03-05_FT-2024-42.xml",
		},
		{
			name: "unknown parts",
			inv:  models.Invoice{Fingerprint: "0123456789abcdef0123"},
			root: "/fatture",
			want: "/fatture/unknown/unknown/unknown/unknown_0123456789ab.xml",
		},
		{
			name: "blank issuer",
			inv:  models.Invoice{Date: &d, Issuer: ptr("  "), Number: ptr("1")},
			want: "2024/03/unknown/2024-03-05_1.xml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, archive.Path(&tt.inv, tt.root))
		})
	}
}

type memStorage struct {
	files     map[string][]byte
	existsErr error
}

func (m *memStorage) Exists(_ context.Context, p string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.files[p]
	return ok, nil
}

func (m *memStorage) Store(_ context.Context, p string, content []byte) error {
	m.files[p] = content
	return nil
}

func TestArchiver(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	inv := &models.Invoice{Date: &d, Issuer: ptr("Rossi"), Number: ptr("1"), RawXML: "<a/>"}
	s := &memStorage{files: map[string][]byte{}}
	a := archive.New(s, "/fatture")
	ctx := context.Background()

	require.NoError(t, a.Archive(ctx, inv))
	assert.Equal(t, []byte("<a/>"), s.files["/fatture/2024/03/Rossi/2024-03-05_1.xml"])

	// an existing file is left alone
	s.files["/fatture/2024/03/Rossi/2024-03-05_1.xml"] = []byte("old")
	require.NoError(t, a.Archive(ctx, inv))
	assert.Equal(t, []byte("old"), s.files["/fatture/2024/03/Rossi/2024-03-05_1.xml"])

	s.existsErr = errors.New("offline")
	assert.Error(t, a.Archive(ctx, inv))
}

type memPersister struct{}

func (memPersister) Persist(_ context.Context, inv *models.Invoice) (*models.Invoice, bool, error) {
	inv.ID = 1
	return inv, true, nil
}

func TestArchive_Latin1SourceIsStoredAsUTF8(t *testing.T) {
	latin1 := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<FatturaElettronica><CedentePrestatore><Denominazione>Caff\xe8 Srl</Denominazione></CedentePrestatore>" +
		"<Data>2024-02-01</Data><Numero>7</Numero></FatturaElettronica>")

	storage, err := fs.New(t.TempDir())
	require.NoError(t, err)
	imp := importer.New(memPersister{}, importer.WithArchiver(archive.New(storage, "")))
	report := imp.ImportBatch(context.Background(), []importer.SourceItem{importer.FromBytes("caffe.xml", latin1)})
	require.Empty(t, report.Errors)

	b, err := storage.Retrieve(context.Background(), "2024/02/Caff\u00e8_Srl/2024-02-01_7.xml")
	require.NoError(t, err)
	assert.Contains(t, string(b), `encoding="UTF-8"`)
	assert.Contains(t, string(b), "Caff\u00e8 Srl")
	assert.NotContains(t, string(b), "ISO-8859-1")

	root, err := xmltree.ParseString(string(b))
	require.NoError(t, err)
	assert.Equal(t, "Caff\u00e8 Srl", root.FindFirst("Denominazione").Text())
}

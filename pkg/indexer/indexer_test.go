package indexer_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/fatture/pkg/indexer"
	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/store"
)

const osAddr = "http://opensearch.lan:9200"

func TestMain(m *testing.M) {
	logrus.StandardLogger().SetLevel(logrus.DebugLevel)
	os.Exit(m.Run())
}

func ptr[T any](v T) *T { return &v }

func newIndexer(t *testing.T) *indexer.Indexer {
	t.Helper()
	idx, err := indexer.New(osAddr, indexer.WithUsername("admin"), indexer.WithPassword("admin"))
	require.NoError(t, err)
	return idx
}

func sample() *models.Invoice {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	return &models.Invoice{
		ID:          7,
		Fingerprint: "abc123",
		Number:      ptr("FT/2024/42"),
		Date:        &d,
		Issuer:      ptr("Forniture Rossi S.r.l."),
		Total:       decimal.NewNullDecimal(decimal.RequireFromString("146.4")),
		Reason:      ptr("Fornitura marzo"),
		Lines: []models.LineItem{
			{Description: "Carta A4"},
			{Description: "Toner"},
		},
	}
}

func TestNewDocument(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	d := indexer.NewDocument(sample(), now)
	assert.Equal(t, uint(7), d.ID)
	assert.Equal(t, "abc123", d.Fingerprint)
	assert.Equal(t, "2024-03-05", d.Date)
	assert.Empty(t, d.DueDate)
	require.NotNil(t, d.Total)
	assert.Equal(t, "146.40", *d.Total)
	assert.Equal(t, "Fornitura marzo\nCarta A4\nToner", d.Text)
	assert.Equal(t, now, d.IndexedAt)

	empty := indexer.NewDocument(&models.Invoice{Fingerprint: "x"}, now)
	assert.Nil(t, empty.Total)
	assert.Empty(t, empty.Text)
}

func TestIndex(t *testing.T) {
	defer gock.Off()
	gock.New(osAddr).
		Put("/fatture/_doc/abc123").
		Reply(http.StatusCreated).
		JSON(map[string]any{"result": "created"})

	idx := newIndexer(t)
	require.NoError(t, idx.Index(context.Background(), sample()))
	assert.True(t, gock.IsDone())
}

func TestIndex_Error(t *testing.T) {
	defer gock.Off()
	gock.New(osAddr).
		Put("/fatture/_doc/abc123").
		Reply(http.StatusBadRequest).
		JSON(map[string]any{"error": map[string]any{"type": "mapper_parsing_exception"}})

	err := newIndexer(t).Index(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestInit_IndexExists(t *testing.T) {
	defer gock.Off()
	gock.New(osAddr).Head("/").Reply(http.StatusOK)
	gock.New(osAddr).
		Put("/invoices-test").
		Reply(http.StatusBadRequest).
		JSON(map[string]any{"error": map[string]any{"type": "resource_already_exists_exception"}})

	idx, err := indexer.New(osAddr, indexer.WithIndex("invoices-test"))
	require.NoError(t, err)
	require.NoError(t, idx.Init(context.Background()))
	assert.Equal(t, "invoices-test", idx.IndexName())
	assert.True(t, gock.IsDone())
}

func TestInit_Unauthorized(t *testing.T) {
	defer gock.Off()
	gock.New(osAddr).Head("/").Reply(http.StatusUnauthorized)

	err := newIndexer(t).Init(context.Background())
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	defer gock.Off()
	gock.New(osAddr).
		Path("/fatture/_search").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": 1},
				"hits": []map[string]any{
					{
						"_id":    "abc123",
						"_score": 1.5,
						"_source": map[string]any{
							"id":          7,
							"fingerprint": "abc123",
							"number":      "FT/2024/42",
							"total":       "146.40",
							"paid":        false,
						},
						"highlight": map[string]any{
							"text": []string{"<em>Toner</em>"},
						},
					},
				},
			},
		})

	res, err := newIndexer(t).Search(context.Background(), "toner", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Hits, 1)
	hit := res.Hits[0]
	assert.Equal(t, "abc123", hit.ID)
	assert.Equal(t, 1.5, hit.Score)
	assert.Equal(t, uint(7), hit.Document.ID)
	assert.Equal(t, "FT/2024/42", *hit.Document.Number)
	assert.Equal(t, []string{"<em>Toner</em>"}, hit.Highlight["text"])
}

func TestDelete_Missing(t *testing.T) {
	defer gock.Off()
	gock.New(osAddr).
		Delete("/fatture/_doc/gone").
		Reply(http.StatusNotFound).
		JSON(map[string]any{"result": "not_found"})

	assert.NoError(t, newIndexer(t).Delete(context.Background(), "gone"))
}

type fakeSource struct {
	invoices []models.Invoice
	broken   uint
}

func (f *fakeSource) List(_ context.Context, filter store.ListFilter) ([]models.Invoice, int64, error) {
	total := int64(len(f.invoices))
	if filter.Offset >= len(f.invoices) {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(f.invoices) {
		end = len(f.invoices)
	}
	return f.invoices[filter.Offset:end], total, nil
}

func (f *fakeSource) Get(_ context.Context, id uint) (*models.Invoice, error) {
	if id == f.broken {
		return nil, errors.New("database is locked")
	}
	for _, inv := range f.invoices {
		if inv.ID == id {
			return &inv, nil
		}
	}
	return nil, store.ErrNotFound
}

func TestReindex(t *testing.T) {
	defer gock.Off()
	gock.New(osAddr).
		Put("/fatture/_doc/.+").
		Persist().
		Reply(http.StatusOK).
		JSON(map[string]any{"result": "updated"})

	src := &fakeSource{broken: 2}
	for id := uint(1); id <= 3; id++ {
		src.invoices = append(src.invoices, models.Invoice{ID: id, Fingerprint: "fp" + string(rune('0'+id))})
	}

	indexed, failed, err := newIndexer(t).Reindex(context.Background(), src, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
	assert.Equal(t, 1, failed)
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := indexer.New("")
	assert.Error(t, err)
}

func TestNew_InvalidCACert(t *testing.T) {
	_, err := indexer.New("https://localhost:9200", indexer.WithCACert(t.TempDir()+"/missing.pem"))
	assert.Error(t, err)
}

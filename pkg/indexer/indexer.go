// Package indexer mirrors stored invoices into OpenSearch for full text
// search. The relational store stays the source of truth.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/cacert"
	"github.com/denysvitali/fatture/pkg/models"
)

var log = logrus.StandardLogger().WithField("package", "indexer")

const DefaultIndex = "fatture"

type Indexer struct {
	addr               string
	username           string
	password           string
	insecureSkipVerify bool
	caCert             string
	index              string

	client *opensearch.Client
}

type Option func(*Indexer)

func New(addr string, opts ...Option) (*Indexer, error) {
	if addr == "" {
		return nil, fmt.Errorf("opensearch address is required")
	}
	i := &Indexer{addr: addr, index: DefaultIndex}
	for _, opt := range opts {
		opt(i)
	}

	transport := http.DefaultTransport
	if i.insecureSkipVerify || i.caCert != "" {
		t, err := cacert.Transport(i.caCert, i.insecureSkipVerify)
		if err != nil {
			return nil, fmt.Errorf("opensearch ca: %w", err)
		}
		transport = t
	}
	c, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{i.addr},
		Username:  i.username,
		Password:  i.password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}
	i.client = c
	return i, nil
}

func (i *Indexer) IndexName() string {
	return i.index
}

// Init checks that OpenSearch answers and creates the index when missing.
func (i *Indexer) Init(ctx context.Context) error {
	if err := i.Ping(ctx); err != nil {
		return err
	}
	return i.createIndex(ctx)
}

func (i *Indexer) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("ping opensearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping opensearch: %s", res.Status())
	}
	return nil
}

var indexMapping = `{
  "mappings": {
    "properties": {
      "fingerprint": {"type": "keyword"},
      "number": {"type": "keyword"},
      "date": {"type": "date", "format": "yyyy-MM-dd"},
      "dueDate": {"type": "date", "format": "yyyy-MM-dd"},
      "issuer": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "issuerVatId": {"type": "keyword"},
      "customer": {"type": "text"},
      "total": {"type": "scaled_float", "scaling_factor": 100},
      "currency": {"type": "keyword"},
      "documentType": {"type": "keyword"},
      "paid": {"type": "boolean"},
      "text": {"type": "text"},
      "indexedAt": {"type": "date"}
    }
  }
}`

func (i *Indexer) createIndex(ctx context.Context) error {
	req := opensearchapi.IndicesCreateRequest{
		Index: i.index,
		Body:  strings.NewReader(indexMapping),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusBadRequest {
		// index already exists
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("create index %s: %s: %s", i.index, res.Status(), decodeError(res.Body))
	}
	log.Infof("created index %s", i.index)
	return nil
}

// Index stores inv under its fingerprint, replacing any earlier version.
func (i *Indexer) Index(ctx context.Context, inv *models.Invoice) error {
	body, err := json.Marshal(NewDocument(inv, time.Now()))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	req := opensearchapi.IndexRequest{
		Index:      i.index,
		DocumentID: inv.Fingerprint,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch returned an invalid status %s: %s", res.Status(), decodeError(res.Body))
	}
	log.Debugf("indexed %s", inv.Label())
	return nil
}

func (i *Indexer) Delete(ctx context.Context, fingerprint string) error {
	req := opensearchapi.DeleteRequest{Index: i.index, DocumentID: fingerprint}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete %s: %s", fingerprint, res.Status())
	}
	return nil
}

func decodeError(body io.Reader) string {
	var errorMessage struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&errorMessage); err != nil {
		return ""
	}
	return string(errorMessage.Error)
}

// Package importer runs batches of source documents through the pipeline:
// unwrap, decode, extract, then persist with deduplication. A failing item
// never stops the batch; it ends up in the report instead.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/denysvitali/fatture/pkg/envelope"
	"github.com/denysvitali/fatture/pkg/fatturapa"
	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/textdecode"
)

var log = logrus.StandardLogger().WithField("package", "importer")

type Persister interface {
	Persist(ctx context.Context, inv *models.Invoice) (stored *models.Invoice, created bool, err error)
}

// Archiver keeps a copy of every stored document somewhere else.
type Archiver interface {
	Archive(ctx context.Context, inv *models.Invoice) error
}

// Indexer mirrors stored invoices into a search engine.
type Indexer interface {
	Index(ctx context.Context, inv *models.Invoice) error
}

type Importer struct {
	store     Persister
	decoder   *textdecode.Decoder
	unwrapper envelope.Unwrapper
	workers   int
	archiver  Archiver
	indexer   Indexer
	now       func() time.Time
}

type Option func(*Importer)

// WithWorkers runs unwrap, decode and extract on up to n items at once.
// Persisting stays sequential and in submission order.
func WithWorkers(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.workers = n
		}
	}
}

func WithUnwrapper(u envelope.Unwrapper) Option {
	return func(i *Importer) {
		i.unwrapper = u
	}
}

func WithDecoder(d *textdecode.Decoder) Option {
	return func(i *Importer) {
		i.decoder = d
	}
}

func WithArchiver(a Archiver) Option {
	return func(i *Importer) {
		i.archiver = a
	}
}

func WithIndexer(idx Indexer) Option {
	return func(i *Importer) {
		i.indexer = idx
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Importer) {
		i.now = now
	}
}

func New(store Persister, opts ...Option) *Importer {
	i := &Importer{
		store:     store,
		decoder:   textdecode.New(),
		unwrapper: envelope.PKCS7{},
		workers:   1,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type prepared struct {
	inv *models.Invoice
	err *ImportError
}

// Run collects the items of c and imports them. Items the collector could
// not retrieve are reported where the collector met them. A collector that
// fails as a whole aborts the run before anything is imported. When c is an
// Acker, each group whose items were all stored is acknowledged.
func (i *Importer) Run(ctx context.Context, c Collector) (*BatchReport, error) {
	started := i.now()
	coll, err := c.Collect(ctx)
	if err != nil {
		var ce *CollectError
		if !errors.As(err, &ce) {
			err = Transport("collect", err)
		}
		return nil, err
	}
	log.Infof("collected %d items, %d failed", len(coll.Items), len(coll.Failures))

	report, itemErrs := i.importBatch(ctx, started, coll.Items)
	report.Errors = coll.mergeErrors(itemErrs)

	if acker, ok := c.(Acker); ok {
		i.ack(ctx, acker, coll, itemErrs)
	}
	return report, nil
}

func (i *Importer) ack(ctx context.Context, acker Acker, coll *Collection, itemErrs []*ImportError) {
	failed := make(map[string]bool)
	for idx, e := range itemErrs {
		if e != nil {
			failed[coll.Items[idx].Group] = true
		}
	}
	for _, group := range coll.Groups {
		if failed[group] {
			log.Infof("%s has failed items, leaving it for the next run", group)
			continue
		}
		if err := acker.Ack(ctx, group); err != nil {
			log.Warnf("unable to acknowledge %s: %v", group, err)
		}
	}
}

// ImportBatch imports items in order and reports what happened to each.
func (i *Importer) ImportBatch(ctx context.Context, items []SourceItem) *BatchReport {
	report, _ := i.importBatch(ctx, i.now(), items)
	return report
}

// importBatch also returns the error of each item, nil for stored ones.
func (i *Importer) importBatch(ctx context.Context, started time.Time, items []SourceItem) (*BatchReport, []*ImportError) {
	report := newReport(started)
	itemErrs := make([]*ImportError, len(items))
	log.Debugf("batch %s: %d items", report.BatchID, len(items))

	results := make([]prepared, len(items))
	g := new(errgroup.Group)
	g.SetLimit(i.workers)
	for idx := range items {
		g.Go(func() error {
			results[idx] = i.prepare(ctx, items[idx])
			return nil
		})
	}
	_ = g.Wait()

	for idx, item := range items {
		res := results[idx]
		if res.err != nil {
			log.Warnf("%s: %s: %s", item.Name, res.err.Kind, res.err.Message)
			report.Errors = append(report.Errors, *res.err)
			itemErrs[idx] = res.err
			continue
		}
		stored, created, ierr := i.persist(ctx, item.Name, res.inv)
		if ierr != nil {
			log.Warnf("%s: %s: %s", item.Name, ierr.Kind, ierr.Message)
			report.Errors = append(report.Errors, *ierr)
			itemErrs[idx] = ierr
			continue
		}
		if created {
			report.Imported++
			log.Infof("imported %s from %s", stored.Label(), item.Name)
		} else {
			report.SkippedDuplicates++
			log.Infof("%s: %s already stored as %d", item.Name, DuplicateSkipped, stored.ID)
		}
		report.Stored = append(report.Stored, Stored{
			Source:      item.Name,
			InvoiceID:   stored.ID,
			Fingerprint: stored.Fingerprint,
			Created:     created,
		})
		i.runHooks(ctx, stored)
	}

	report.Finished = i.now()
	log.Infof("%s", report)
	return report, itemErrs
}

// prepare turns an item into an invoice ready to persist. It never panics.
func (i *Importer) prepare(ctx context.Context, item SourceItem) (res prepared) {
	defer func() {
		if r := recover(); r != nil {
			e := ImportError{Source: item.Name, Kind: Unknown, Message: fmt.Sprint(r)}
			res = prepared{err: &e}
		}
	}()
	fail := func(kind ErrorKind, err error) prepared {
		e := newImportError(item.Name, KindOf(err, kind), err)
		return prepared{err: &e}
	}

	text := item.Text
	if !item.IsText {
		content := item.Content
		if envelope.IsEnvelope(item.Name) {
			inner, err := i.unwrapper.Unwrap(ctx, content)
			if err != nil {
				return fail(EnvelopeError, err)
			}
			content = inner
		}
		decoded, encoding, err := i.decoder.Decode(content)
		if err != nil {
			return fail(DecodeError, err)
		}
		log.Debugf("%s decoded as %s", item.Name, encoding)
		text = decoded
	}

	inv, err := fatturapa.Extract(text)
	if err != nil {
		return fail(MalformedDocument, err)
	}
	return prepared{inv: inv}
}

func (i *Importer) persist(ctx context.Context, source string, inv *models.Invoice) (stored *models.Invoice, created bool, ierr *ImportError) {
	defer func() {
		if r := recover(); r != nil {
			ierr = &ImportError{Source: source, Kind: Unknown, Message: fmt.Sprint(r)}
		}
	}()
	stored, created, err := i.store.Persist(ctx, inv)
	if err != nil {
		e := newImportError(source, StoreError, err)
		return nil, false, &e
	}
	return stored, created, nil
}

func (i *Importer) runHooks(ctx context.Context, inv *models.Invoice) {
	if i.archiver != nil {
		if err := i.archiver.Archive(ctx, inv); err != nil {
			log.Warnf("unable to archive %s: %v", inv.Label(), err)
		}
	}
	if i.indexer != nil {
		if err := i.indexer.Index(ctx, inv); err != nil {
			log.Warnf("unable to index %s: %v", inv.Label(), err)
		}
	}
}

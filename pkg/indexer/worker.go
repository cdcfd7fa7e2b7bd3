package indexer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/store"
)

const reindexPageSize = 100

// Source lists the stored invoices to re-index.
type Source interface {
	List(ctx context.Context, f store.ListFilter) ([]models.Invoice, int64, error)
	Get(ctx context.Context, id uint) (*models.Invoice, error)
}

type worker struct {
	id     int
	ch     <-chan uint
	idx    *Indexer
	src    Source
	failed *atomic.Int64
	done   *atomic.Int64
}

func (w *worker) do(ctx context.Context, id uint) {
	inv, err := w.src.Get(ctx, id)
	if err != nil {
		log.Errorf("[W%d]: unable to load invoice %d: %v", w.id, id, err)
		w.failed.Add(1)
		return
	}
	if err := w.idx.Index(ctx, inv); err != nil {
		log.Errorf("[W%d]: %s cannot be indexed: %v", w.id, inv.Label(), err)
		w.failed.Add(1)
		return
	}
	w.done.Add(1)
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for id := range w.ch {
		w.do(ctx, id)
	}
	log.Debugf("[W%d]: done", w.id)
}

// Reindex indexes every invoice of src again using the given number of
// workers. Failures of single invoices are logged and counted.
func (i *Indexer) Reindex(ctx context.Context, src Source, workers int) (indexed int, failed int, err error) {
	if workers <= 0 {
		workers = 1
	}
	ch := make(chan uint)
	var wg sync.WaitGroup
	var done, failures atomic.Int64
	for n := 0; n < workers; n++ {
		wg.Add(1)
		w := &worker{id: n, ch: ch, idx: i, src: src, failed: &failures, done: &done}
		go w.start(ctx, &wg)
	}

	err = i.feed(ctx, src, ch)
	close(ch)
	wg.Wait()
	return int(done.Load()), int(failures.Load()), err
}

func (i *Indexer) feed(ctx context.Context, src Source, ch chan<- uint) error {
	for offset := 0; ; offset += reindexPageSize {
		page, _, err := src.List(ctx, store.ListFilter{Limit: reindexPageSize, Offset: offset})
		if err != nil {
			return err
		}
		for _, inv := range page {
			select {
			case ch <- inv.ID:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if len(page) < reindexPageSize {
			return nil
		}
	}
}

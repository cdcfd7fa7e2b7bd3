package dropbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"

	"github.com/denysvitali/fatture/pkg/importer"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 2 * time.Second
)

// Pager walks a folder listing page by page. A failing page is retried
// from the last cursor with exponential backoff; once the retries are
// exhausted Next returns false and Err reports the failure.
//
//	p := NewPager(ctx, api, "/fatture")
//	for p.Next() {
//		for _, e := range p.Page() { ... }
//	}
//	if err := p.Err(); err != nil { ... }
type Pager struct {
	ctx        context.Context
	api        API
	path       string
	recursive  bool
	maxRetries int
	backoff    time.Duration

	cursor string
	done   bool
	page   []files.IsMetadata
	err    error
}

type PagerOption func(*Pager)

func WithRetries(maxRetries int, backoff time.Duration) PagerOption {
	return func(p *Pager) {
		p.maxRetries = maxRetries
		p.backoff = backoff
	}
}

// WithCursor resumes a listing from a cursor returned by an earlier Pager.
func WithCursor(cursor string) PagerOption {
	return func(p *Pager) {
		p.cursor = cursor
	}
}

func NonRecursive() PagerOption {
	return func(p *Pager) {
		p.recursive = false
	}
}

func NewPager(ctx context.Context, api API, path string, opts ...PagerOption) *Pager {
	p := &Pager{
		ctx:        ctx,
		api:        api,
		path:       path,
		recursive:  true,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pager) Next() bool {
	if p.done || p.err != nil {
		return false
	}
	res, err := p.fetchWithRetry()
	if err != nil {
		p.err = importer.Transport(fmt.Sprintf("list %s", p.path), err)
		p.page = nil
		return false
	}
	p.page = res.Entries
	p.cursor = res.Cursor
	p.done = !res.HasMore
	return true
}

func (p *Pager) Page() []files.IsMetadata {
	return p.page
}

// Cursor is the cursor of the last page fetched successfully.
func (p *Pager) Cursor() string {
	return p.cursor
}

func (p *Pager) Err() error {
	return p.err
}

func (p *Pager) fetchWithRetry() (*files.ListFolderResult, error) {
	wait := p.backoff
	for attempt := 0; ; attempt++ {
		if err := p.ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.fetch()
		if err == nil {
			return res, nil
		}
		if attempt >= p.maxRetries {
			return nil, fmt.Errorf("after %d attempts: %w", attempt+1, err)
		}
		log.Warnf("listing %s failed (attempt %d), retrying in %s: %v", p.path, attempt+1, wait, err)
		select {
		case <-p.ctx.Done():
			return nil, p.ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (p *Pager) fetch() (*files.ListFolderResult, error) {
	if p.cursor != "" {
		return p.api.ListFolderContinue(files.NewListFolderContinueArg(p.cursor))
	}
	arg := files.NewListFolderArg(p.path)
	arg.Recursive = p.recursive
	return p.api.ListFolder(arg)
}

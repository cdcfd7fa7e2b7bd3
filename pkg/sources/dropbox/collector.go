package dropbox

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/envelope"
	"github.com/denysvitali/fatture/pkg/importer"
)

var log = logrus.StandardLogger().WithField("package", "sources/dropbox")

const DefaultRoot = "/fatture"

// Collector downloads every invoice document below a root folder.
type Collector struct {
	api       API
	root      string
	pagerOpts []PagerOption
}

var _ importer.Collector = (*Collector)(nil)

func NewCollector(api API, root string, opts ...PagerOption) *Collector {
	if root == "" {
		root = DefaultRoot
	}
	return &Collector{api: api, root: root, pagerOpts: opts}
}

// IsInvoiceFile reports whether name looks like a FatturaPA document,
// signed or not.
func IsInvoiceFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".xml" || ext == envelope.Extension
}

func (c *Collector) Collect(ctx context.Context) (*importer.Collection, error) {
	coll := &importer.Collection{}
	err := c.walk(ctx, func(f *files.FileMetadata) {
		content, err := c.download(f.PathLower)
		if err != nil {
			log.Warnf("unable to download %s: %v", f.PathDisplay, err)
			coll.Fail(f.PathDisplay, importer.Transport("download", err))
			return
		}
		coll.Items = append(coll.Items, importer.FromBytes(f.PathDisplay, content))
	})
	if err != nil {
		return nil, err
	}
	log.Infof("downloaded %d documents from %s", len(coll.Items), c.root)
	return coll, nil
}

// Count returns the number of invoice documents below the root.
func (c *Collector) Count(ctx context.Context) (int, error) {
	n := 0
	err := c.walk(ctx, func(*files.FileMetadata) { n++ })
	return n, err
}

func (c *Collector) walk(ctx context.Context, fn func(f *files.FileMetadata)) error {
	p := NewPager(ctx, c.api, c.root, c.pagerOpts...)
	pages := 0
	for p.Next() {
		pages++
		for _, entry := range p.Page() {
			f, ok := entry.(*files.FileMetadata)
			if !ok || !IsInvoiceFile(f.Name) {
				continue
			}
			fn(f)
		}
		log.Debugf("page %d of %s done", pages, c.root)
	}
	return p.Err()
}

func (c *Collector) download(p string) ([]byte, error) {
	_, rc, err := c.api.Download(files.NewDownloadArg(p))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return b, nil
}

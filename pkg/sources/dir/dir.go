// Package dir collects invoice documents from a local folder.
package dir

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/envelope"
	"github.com/denysvitali/fatture/pkg/importer"
)

var log = logrus.StandardLogger().WithField("package", "sources/dir")

type Collector struct {
	dir string
}

var _ importer.Collector = (*Collector)(nil)

func New(dir string) *Collector {
	return &Collector{dir: dir}
}

func isDocument(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xml" || ext == envelope.Extension
}

// Collect reads every .xml and .p7m file of the folder, sorted by name.
// Subfolders are ignored.
func (c *Collector) Collect(ctx context.Context) (*importer.Collection, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, importer.Transport("read directory", err)
	}

	// os.ReadDir sorts by file name
	coll := &importer.Collection{}
	for _, e := range entries {
		if e.IsDir() || !isDocument(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			coll.Fail(e.Name(), importer.Transport("read file", err))
			continue
		}
		coll.Items = append(coll.Items, importer.FromBytes(e.Name(), content))
	}
	log.Debugf("%d documents in %s", len(coll.Items), c.dir)
	return coll, nil
}

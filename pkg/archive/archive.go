// Package archive files a copy of every stored invoice under a path keyed by
// year, month and issuer.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/models"
	"github.com/denysvitali/fatture/pkg/xmltree"
)

var log = logrus.StandardLogger().WithField("package", "archive")

const unknown = "unknown"

type Storer interface {
	Exists(ctx context.Context, path string) (bool, error)
	Store(ctx context.Context, path string, content []byte) error
}

type Retriever interface {
	Retrieve(ctx context.Context, path string) ([]byte, error)
}

type RWStorage interface {
	Storer
	Retriever
}

// Archiver uploads the document of an invoice, as UTF-8, unless a file
// already exists at its path.
type Archiver struct {
	storer Storer
	root   string
}

func New(storer Storer, root string) *Archiver {
	return &Archiver{storer: storer, root: root}
}

func (a *Archiver) Archive(ctx context.Context, inv *models.Invoice) error {
	p := Path(inv, a.root)
	exists, err := a.storer.Exists(ctx, p)
	if err != nil {
		return fmt.Errorf("check %s: %w", p, err)
	}
	if exists {
		log.Debugf("%s already archived at %s", inv.Label(), p)
		return nil
	}
	if err := a.storer.Store(ctx, p, xmltree.UTF8(inv.RawXML)); err != nil {
		return fmt.Errorf("store %s: %w", p, err)
	}
	log.Infof("archived %s at %s", inv.Label(), p)
	return nil
}

// Path returns root/YYYY/MM/<issuer>/<YYYY-MM-DD>_<number>.xml. Spaces in the
// issuer become underscores; unknown parts become "unknown" and a missing
// number is replaced by the start of the fingerprint.
func Path(inv *models.Invoice, root string) string {
	year, month, day := unknown, unknown, unknown
	if inv.Date != nil {
		year = inv.Date.Format("2006")
		month = inv.Date.Format("01")
		day = inv.Date.Format("2006-01-02")
	}

	issuer := unknown
	if inv.Issuer != nil && strings.TrimSpace(*inv.Issuer) != "" {
		issuer = strings.ReplaceAll(clean(*inv.Issuer), " ", "_")
	}

	number := ""
	if inv.Number != nil {
		number = clean(*inv.Number)
	}
	if number == "" {
		number = inv.Fingerprint
		if len(number) > 12 {
			number = number[:12]
		}
	}

	return path.Join(root, year, month, issuer, fmt.Sprintf("%s_%s.xml", day, number))
}

// clean keeps path separators out of a single path element.
func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "-", "\\", "-").Replace(s)
	if s == "." || s == ".." {
		return strings.Repeat("_", len(s))
	}
	return s
}

// Package render turns a stored invoice document into HTML through an XSLT
// stylesheet, such as the ones published by the Agenzia delle Entrate.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/xmltree"
)

var log = logrus.StandardLogger().WithField("package", "render")

var ErrRender = errors.New("unable to render document")

type Renderer interface {
	Render(ctx context.Context, document string) ([]byte, error)
}

// XSLTProc applies Stylesheet (a path or URL) with the xsltproc binary. The
// document is passed on stdin as UTF-8.
type XSLTProc struct {
	Binary     string
	Stylesheet string
}

var _ Renderer = XSLTProc{}

func (x XSLTProc) Render(ctx context.Context, document string) ([]byte, error) {
	if x.Stylesheet == "" {
		return nil, fmt.Errorf("%w: no stylesheet configured", ErrRender)
	}
	if document == "" {
		return nil, fmt.Errorf("%w: empty document", ErrRender)
	}
	bin := x.Binary
	if bin == "" {
		bin = "xsltproc"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, x.Stylesheet, "-")
	cmd.Stdin = bytes.NewReader(xmltree.UTF8(document))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Debugf("%s failed: %s", bin, stderr.String())
		return nil, fmt.Errorf("%w: %v: %s", ErrRender, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/fatture/pkg/render"
)

// cat stands in for xsltproc: it prints the stylesheet, then stdin.
func TestRender_PassesStylesheetAndDocument(t *testing.T) {
	sheet := filepath.Join(t.TempDir(), "sheet.xsl")
	require.NoError(t, os.WriteFile(sheet, []byte("<xsl/>"), 0o644))

	r := render.XSLTProc{Binary: "cat", Stylesheet: sheet}
	out, err := r.Render(context.Background(), "<FatturaElettronica/>")
	require.NoError(t, err)
	assert.Equal(t, "<xsl/><FatturaElettronica/>", string(out))
}

func TestRender_DocumentIsSentAsUTF8(t *testing.T) {
	sheet := filepath.Join(t.TempDir(), "sheet.xsl")
	require.NoError(t, os.WriteFile(sheet, nil, 0o644))

	r := render.XSLTProc{Binary: "cat", Stylesheet: sheet}
	out, err := r.Render(context.Background(), `<?xml version="1.0" encoding="ISO-8859-1"?><a>Caffè</a>`)
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><a>Caffè</a>`, string(out))
}

func TestRender_Failure(t *testing.T) {
	r := render.XSLTProc{Binary: "false", Stylesheet: "sheet.xsl"}
	_, err := r.Render(context.Background(), "<a/>")
	assert.True(t, errors.Is(err, render.ErrRender))
}

func TestRender_Misconfigured(t *testing.T) {
	_, err := render.XSLTProc{}.Render(context.Background(), "<a/>")
	assert.True(t, errors.Is(err, render.ErrRender))

	_, err = render.XSLTProc{Stylesheet: "sheet.xsl"}.Render(context.Background(), "")
	assert.True(t, errors.Is(err, render.ErrRender))
}

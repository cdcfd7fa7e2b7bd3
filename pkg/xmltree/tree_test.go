package xmltree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/fatture/pkg/xmltree"
)

const doc = `<?xml version="1.0" encoding="windows-1252"?>
<p:FatturaElettronica xmlns:p="http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2">
  <FatturaElettronicaHeader>
    <CedentePrestatore><Denominazione>ACME</Denominazione></CedentePrestatore>
  </FatturaElettronicaHeader>
  <FatturaElettronicaBody>
    <Linea><p:Numero> 1 </p:Numero></Linea>
    <Numero>2</Numero>
    <Linea><Numero>3</Numero></Linea>
  </FatturaElettronicaBody>
</p:FatturaElettronica>`

func TestParse_LocalNames(t *testing.T) {
	root, err := xmltree.ParseString(doc)
	require.NoError(t, err)
	assert.Equal(t, "FatturaElettronica", root.Name)
	assert.Equal(t, root, root.FindFirst("FatturaElettronica"))

	text, ok := root.FirstText("Numero")
	require.True(t, ok)
	assert.Equal(t, "1", text)

	all := root.FindAll("Numero")
	require.Len(t, all, 3)
	assert.Equal(t, "2", all[1].Text())
	assert.Equal(t, "Linea", all[2].Parent.Name)
}

func TestChild_OnlyImmediate(t *testing.T) {
	root, err := xmltree.ParseString(doc)
	require.NoError(t, err)
	body := root.FindFirst("FatturaElettronicaBody")
	require.NotNil(t, body)

	v, ok := body.ChildText("Numero")
	require.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok = root.ChildText("Denominazione")
	assert.False(t, ok)
}

func TestFind_Missing(t *testing.T) {
	root, err := xmltree.ParseString(`<a><b/></a>`)
	require.NoError(t, err)
	assert.Nil(t, root.FindFirst("c"))
	assert.Empty(t, root.FindAll("c"))
	_, ok := root.FirstText("c")
	assert.False(t, ok)

	var nilNode *xmltree.Node
	assert.Nil(t, nilNode.FindFirst("a"))
	assert.Nil(t, nilNode.Child("a"))
}

func TestParse_Malformed(t *testing.T) {
	for name, input := range map[string]string{
		"empty":         "",
		"not xml":       "this is not xml",
		"truncated tag": "<FatturaElettronica><Numero>1</Num",
		"unclosed":      "<a><b></b>",
		"two roots":     "<a/><b/>",
		"mismatched":    "<a><b></a></b>",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := xmltree.ParseString(input)
			assert.Error(t, err)
		})
	}
}

func TestUTF8(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{`<?xml version="1.0" encoding="ISO-8859-1"?><a>Caffè</a>`, `<?xml version="1.0" encoding="UTF-8"?><a>Caffè</a>`},
		{`<?xml version='1.0' encoding='windows-1252' standalone='yes'?><a/>`, `<?xml version='1.0' encoding='UTF-8' standalone='yes'?><a/>`},
		{"\ufeff<?xml version=\"1.0\" encoding=\"latin1\"?><a/>", "\ufeff<?xml version=\"1.0\" encoding=\"UTF-8\"?><a/>"},
		{`<?xml version="1.0" encoding="UTF-8"?><a/>`, `<?xml version="1.0" encoding="UTF-8"?><a/>`},
		{`<?xml version="1.0"?><a encoding="latin1"/>`, `<?xml version="1.0"?><a encoding="latin1"/>`},
		{`<a><?xml-stylesheet href="x"?></a>`, `<a><?xml-stylesheet href="x"?></a>`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, string(xmltree.UTF8(tt.in)), tt.in)
	}
}

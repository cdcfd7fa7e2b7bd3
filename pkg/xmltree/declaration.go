package xmltree

import "regexp"

var declaredEncoding = regexp.MustCompile(`^(\x{FEFF}?<\?xml\s[^?]*?\bencoding\s*=\s*)(["'])[^"']*["']`)

// UTF8 returns text as UTF-8 bytes whose XML declaration, if it names an
// encoding, names UTF-8. Decoded documents keep the declaration of their
// source bytes, which no longer matches once they are written out again.
func UTF8(text string) []byte {
	return []byte(declaredEncoding.ReplaceAllString(text, `${1}${2}UTF-8${2}`))
}

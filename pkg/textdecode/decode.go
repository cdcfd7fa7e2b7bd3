// Package textdecode turns raw invoice payloads into text by trying a fixed,
// ordered list of candidate encodings.
package textdecode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding is a named candidate. Decode must fail when the payload is not
// valid for the encoding; it never judges whether the text makes sense.
type Encoding struct {
	Name   string
	Decode func([]byte) (string, error)
}

var (
	UTF8 = Encoding{
		Name: "utf-8",
		Decode: func(b []byte) (string, error) {
			if !utf8.Valid(b) {
				return "", fmt.Errorf("invalid utf-8 sequence")
			}
			return string(b), nil
		},
	}
	Latin1      = FromTextEncoding("iso-8859-1", charmap.ISO8859_1)
	Windows1252 = FromTextEncoding("windows-1252", charmap.Windows1252)
)

// DefaultCandidates is the order used by Decode.
var DefaultCandidates = []Encoding{UTF8, Latin1, Windows1252}

// FromTextEncoding adapts a single-byte x/text encoding. Bytes the encoding
// cannot map come out as U+FFFD and make the candidate fail.
func FromTextEncoding(name string, enc encoding.Encoding) Encoding {
	return Encoding{
		Name: name,
		Decode: func(b []byte) (string, error) {
			out, err := enc.NewDecoder().Bytes(b)
			if err != nil {
				return "", err
			}
			if strings.ContainsRune(string(out), utf8.RuneError) {
				return "", fmt.Errorf("unmappable byte for %s", name)
			}
			return string(out), nil
		},
	}
}

// DecodeError is returned when no candidate accepted the payload.
type DecodeError struct {
	Attempted []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode payload with any of [%s]", strings.Join(e.Attempted, ", "))
}

type Decoder struct {
	candidates []Encoding
}

// New returns a Decoder trying candidates in order. Without candidates it
// uses DefaultCandidates.
func New(candidates ...Encoding) *Decoder {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Decoder{candidates: candidates}
}

// Decode returns the text and the name of the first candidate that accepted b.
func (d *Decoder) Decode(b []byte) (string, string, error) {
	attempted := make([]string, 0, len(d.candidates))
	for _, c := range d.candidates {
		text, err := c.Decode(b)
		if err == nil {
			return text, c.Name, nil
		}
		attempted = append(attempted, c.Name)
	}
	return "", "", &DecodeError{Attempted: attempted}
}

// Decode uses DefaultCandidates.
func Decode(b []byte) (string, string, error) {
	return New().Decode(b)
}

package pec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/denysvitali/fatture/pkg/envelope"
)

// certification artifacts attached by the PEC provider to every message
var excluded = map[string]bool{
	"daticert.xml":  true,
	"segnatura.xml": true,
}

type Attachment struct {
	Name    string
	Content []byte
}

// IsInvoiceAttachment reports whether a file name is an invoice document,
// plain or signed, and not a PEC certification artifact.
func IsInvoiceAttachment(name string) bool {
	lower := strings.ToLower(path.Base(name))
	if excluded[lower] {
		return false
	}
	return strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, envelope.Extension)
}

// Attachments walks a raw message, descending into embedded messages, and
// returns the invoice attachments in the order they appear. Bodies are
// transfer-decoded only: charset conversion is left to the importer.
func Attachments(raw []byte) ([]Attachment, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	var out []Attachment
	if err := walk(e, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func walk(e *message.Entity, out *[]Attachment) error {
	if mr := e.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil && !tolerable(err) {
				return fmt.Errorf("read part: %w", err)
			}
			if err := walk(p, out); err != nil {
				return err
			}
		}
	}

	mediaType, _, _ := e.Header.ContentType()
	if strings.EqualFold(mediaType, "message/rfc822") {
		inner, err := message.Read(e.Body)
		if err != nil && !tolerable(err) {
			return fmt.Errorf("read embedded message: %w", err)
		}
		return walk(inner, out)
	}

	h := mail.AttachmentHeader{Header: e.Header}
	name, err := h.Filename()
	if err != nil || name == "" || !IsInvoiceAttachment(name) {
		return nil
	}
	content, err := io.ReadAll(e.Body)
	if err != nil {
		return fmt.Errorf("read attachment %s: %w", name, err)
	}
	*out = append(*out, Attachment{Name: name, Content: content})
	return nil
}

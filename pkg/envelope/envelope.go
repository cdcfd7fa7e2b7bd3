// Package envelope strips CAdES/PKCS#7 signing envelopes (.p7m) from
// invoices. Signatures are never verified.
package envelope

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/hhrutter/pkcs7"
	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger().WithField("package", "envelope")

var ErrUnwrap = errors.New("unable to unwrap envelope")

const Extension = ".p7m"

type Unwrapper interface {
	Unwrap(ctx context.Context, envelope []byte) ([]byte, error)
}

// IsEnvelope reports whether a source name marks a signed payload.
func IsEnvelope(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension)
}

// PKCS7 unwraps envelopes in process.
type PKCS7 struct{}

var _ Unwrapper = PKCS7{}

func (PKCS7) Unwrap(ctx context.Context, envelope []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	der, err := toDER(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnwrap, err)
	}
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnwrap, err)
	}
	if len(p7.Content) == 0 {
		return nil, fmt.Errorf("%w: envelope carries no embedded content", ErrUnwrap)
	}
	return p7.Content, nil
}

// toDER accepts binary DER/BER as well as the base64 (optionally PEM armored)
// form some senders use.
func toDER(b []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, errors.New("empty envelope")
	}
	if trimmed[0] == 0x30 {
		return trimmed, nil
	}

	var sb strings.Builder
	for _, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-----") {
			continue
		}
		sb.WriteString(line)
	}
	der, err := base64.StdEncoding.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("neither DER nor base64: %v", err)
	}
	if len(der) == 0 || der[0] != 0x30 {
		return nil, errors.New("unsupported envelope format")
	}
	log.Debugf("envelope was base64 encoded (%d bytes DER)", len(der))
	return der, nil
}

package envelope

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var defaultOpenSSLArgs = []string{"smime", "-verify", "-noverify", "-inform", "DER"}

// OpenSSL delegates unwrapping to the openssl binary, in "extract without
// verifying the signer" mode.
type OpenSSL struct {
	// Binary defaults to "openssl".
	Binary string
	// Args default to `smime -verify -noverify -inform DER`.
	Args []string
}

var _ Unwrapper = OpenSSL{}

func (o OpenSSL) Unwrap(ctx context.Context, envelope []byte) ([]byte, error) {
	bin := o.Binary
	if bin == "" {
		bin = "openssl"
	}
	args := o.Args
	if len(args) == 0 {
		args = defaultOpenSSLArgs
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(envelope)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrUnwrap, bin, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s produced no output", ErrUnwrap, bin)
	}
	return stdout.Bytes(), nil
}

package main

// Extracts the FatturaPA document from a signed .p7m envelope. With
// --passphrase the input is first decrypted, as read back from an encrypted
// archive.

import (
	"context"
	"io"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/cli"
	"github.com/denysvitali/fatture/pkg/crypt"
	"github.com/denysvitali/fatture/pkg/envelope"
	"github.com/denysvitali/fatture/pkg/logutils"
	"github.com/denysvitali/fatture/pkg/textdecode"
)

var args struct {
	Input      string `arg:"positional" help:"envelope file, stdin when empty or -"`
	Output     string `arg:"-o,--output" help:"output file, stdout when empty"`
	Decode     bool   `arg:"--decode" help:"re-encode the document as UTF-8"`
	Passphrase string `arg:"--passphrase,env:PASSPHRASE" help:"decrypt the input first"`
	LogLevel   string `arg:"--log-level,env:LOG_LEVEL" default:"info"`

	cli.EnvelopeArgs
}

var log = logrus.StandardLogger()

func main() {
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)

	in, err := readInput()
	if err != nil {
		log.Fatalf("unable to read input: %v", err)
	}

	if args.Passphrase != "" {
		c, err := crypt.New(args.Passphrase)
		if err != nil {
			log.Fatalf("unable to create crypt: %v", err)
		}
		if in, err = c.Open(in); err != nil {
			log.Fatalf("unable to decrypt: %v", err)
		}
	}

	var unwrapper envelope.Unwrapper
	if unwrapper, err = args.EnvelopeArgs.New(); err != nil {
		log.Fatal(err)
	}
	out, err := unwrapper.Unwrap(context.Background(), in)
	if err != nil {
		log.Fatalf("unable to unwrap: %v", err)
	}

	if args.Decode {
		text, enc, err := textdecode.Decode(out)
		if err != nil {
			log.Fatalf("unable to decode: %v", err)
		}
		log.Debugf("decoded as %s", enc)
		out = []byte(text)
	}

	if err := writeOutput(out); err != nil {
		log.Fatalf("unable to write output: %v", err)
	}
}

func readInput() ([]byte, error) {
	if args.Input == "" || args.Input == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args.Input)
}

func writeOutput(b []byte) error {
	if args.Output == "" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(args.Output, b, 0o644)
}

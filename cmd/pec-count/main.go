package main

// Reports how many invoices are waiting in the PEC mailbox and in the Dropbox
// folder, without importing anything.

import (
	"context"
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/cli"
	"github.com/denysvitali/fatture/pkg/logutils"
	"github.com/denysvitali/fatture/pkg/sources/dropbox"
	"github.com/denysvitali/fatture/pkg/sources/pec"
)

var args struct {
	SkipPEC     bool   `arg:"--skip-pec"`
	SkipDropbox bool   `arg:"--skip-dropbox"`
	LogLevel    string `arg:"--log-level,env:LOG_LEVEL" default:"info"`

	cli.PECArgs
	cli.DropboxArgs
}

var log = logrus.StandardLogger()

func main() {
	if err := cli.LoadEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)
	ctx := context.Background()

	if !args.SkipPEC {
		if err := countPEC(ctx); err != nil {
			log.Errorf("pec: %v", err)
		}
	}
	if !args.SkipDropbox {
		if err := countDropbox(ctx); err != nil {
			log.Errorf("dropbox: %v", err)
		}
	}
}

func countPEC(ctx context.Context) error {
	mb, err := args.PECArgs.Dial(ctx)
	if err != nil {
		return err
	}
	defer mb.Close()

	messages, withInvoices, err := pec.NewCollector(mb).Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("PEC %s: %d of %d messages carry invoices\n", args.PecFolder, withInvoices, messages)
	return nil
}

func countDropbox(ctx context.Context) error {
	api, err := args.DropboxArgs.Client(ctx)
	if err != nil {
		return err
	}
	n, err := dropbox.NewCollector(api, args.DropboxRoot).Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Dropbox %s: %d invoice files\n", args.DropboxRoot, n)
	return nil
}

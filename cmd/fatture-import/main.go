package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/archive"
	"github.com/denysvitali/fatture/pkg/cli"
	"github.com/denysvitali/fatture/pkg/importer"
	"github.com/denysvitali/fatture/pkg/logutils"
	"github.com/denysvitali/fatture/pkg/sources/dir"
	"github.com/denysvitali/fatture/pkg/sources/dropbox"
	"github.com/denysvitali/fatture/pkg/sources/pec"
	"github.com/denysvitali/fatture/pkg/store"
)

var args struct {
	Source    string `arg:"positional,required" help:"dir, pec or dropbox"`
	Dir       string `arg:"--dir,env:IMPORT_DIR" help:"folder to import - when using the dir source"`
	Workers   int    `arg:"--workers,env:IMPORT_WORKERS" default:"4"`
	ErrorLog  string `arg:"--error-log,env:ERROR_LOG" default:"import_errors.log"`
	JSON      bool   `arg:"--json" help:"print the batch report as JSON on stdout"`
	LogLevel  string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	LogFormat string `arg:"--log-format,env:LOG_FORMAT" default:"text"`

	cli.DatabaseArgs
	cli.EnvelopeArgs
	cli.ArchiveArgs
	cli.OpenSearchArgs
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
	logutils.Setup(args.LogLevel, args.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	st, err := args.DatabaseArgs.Open()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	imp, err := newImporter(ctx, st)
	if err != nil {
		log.Fatalf("create importer: %v", err)
	}

	collector, closeFn, err := newCollector(ctx)
	if err != nil {
		log.Fatalf("create %s collector: %v", args.Source, err)
	}
	defer closeFn()

	report, err := imp.Run(ctx, collector)
	if err != nil {
		log.Fatalf("import aborted: %v", err)
	}
	log.Info(report.String())

	if len(report.Errors) > 0 {
		if err := appendErrorLog(report); err != nil {
			log.Errorf("write error log: %v", err)
		} else {
			log.Warnf("%d errors written to %s", len(report.Errors), args.ErrorLog)
		}
	}

	n, err := st.AssignDueDates(ctx)
	if err != nil {
		log.Errorf("assign due dates: %v", err)
	} else if n > 0 {
		log.Infof("assigned due dates to %d invoices", n)
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("encode report: %v", err)
		}
	}
}

func newImporter(ctx context.Context, st *store.Store) (*importer.Importer, error) {
	unwrapper, err := args.EnvelopeArgs.New()
	if err != nil {
		return nil, err
	}
	opts := []importer.Option{
		importer.WithWorkers(args.Workers),
		importer.WithUnwrapper(unwrapper),
	}

	storage, err := args.ArchiveArgs.Storage(ctx, args.DropboxArgs)
	if err != nil {
		return nil, err
	}
	if storage != nil {
		opts = append(opts, importer.WithArchiver(archive.New(storage, args.ArchiveRoot)))
	}

	idx, err := args.OpenSearchArgs.Indexer(ctx)
	if err != nil {
		return nil, err
	}
	if idx != nil {
		opts = append(opts, importer.WithIndexer(idx))
	}
	return importer.New(st, opts...), nil
}

func newCollector(ctx context.Context) (importer.Collector, func(), error) {
	noop := func() {}
	switch strings.ToLower(args.Source) {
	case "dir":
		if args.Dir == "" {
			return nil, noop, fmt.Errorf("--dir is required")
		}
		return dir.New(args.Dir), noop, nil
	case "pec":
		mb, err := args.PECArgs.Dial(ctx)
		if err != nil {
			return nil, noop, err
		}
		return pec.NewCollector(mb), func() {
			if err := mb.Close(); err != nil {
				log.Warnf("close mailbox: %v", err)
			}
		}, nil
	case "dropbox":
		api, err := args.DropboxArgs.Client(ctx)
		if err != nil {
			return nil, noop, err
		}
		return dropbox.NewCollector(api, args.DropboxRoot), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown source %q, expected dir, pec or dropbox", args.Source)
}

func appendErrorLog(report *importer.BatchReport) error {
	f, err := os.OpenFile(args.ErrorLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := report.WriteErrorLog(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

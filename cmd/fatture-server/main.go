package main

import (
	"context"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/archive"
	"github.com/denysvitali/fatture/pkg/cli"
	"github.com/denysvitali/fatture/pkg/importer"
	"github.com/denysvitali/fatture/pkg/logutils"
	"github.com/denysvitali/fatture/pkg/render"
	"github.com/denysvitali/fatture/pkg/server"
)

var args struct {
	ListenAddr    string `arg:"-L,--listen-addr,env:LISTEN_ADDR" default:"127.0.0.1:8085"`
	MaxUploadSize string `arg:"--max-upload-size,env:MAX_UPLOAD_SIZE" default:"32MB"`
	Stylesheet    string `arg:"--stylesheet,env:FATTURA_XSL" help:"XSL stylesheet used to render invoices, rendering is disabled when empty"`
	Xsltproc      string `arg:"--xsltproc,env:XSLTPROC_BINARY" default:"xsltproc"`
	Workers       int    `arg:"--workers,env:IMPORT_WORKERS" default:"4"`
	LogLevel      string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	LogFormat     string `arg:"--log-format,env:LOG_FORMAT" default:"text"`

	cli.DatabaseArgs
	cli.EnvelopeArgs
	cli.ArchiveArgs
	cli.OpenSearchArgs
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
	ctx := context.Background()

	st, err := args.DatabaseArgs.Open()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	unwrapper, err := args.EnvelopeArgs.New()
	if err != nil {
		log.Fatalf("create unwrapper: %v", err)
	}
	impOpts := []importer.Option{
		importer.WithWorkers(args.Workers),
		importer.WithUnwrapper(unwrapper),
	}
	storage, err := args.ArchiveArgs.Storage(ctx, args.DropboxArgs)
	if err != nil {
		log.Fatalf("create archive: %v", err)
	}
	if storage != nil {
		impOpts = append(impOpts, importer.WithArchiver(archive.New(storage, args.ArchiveRoot)))
	}

	cfg := server.Config{
		Store:         st,
		MaxUploadSize: args.MaxUploadSize,
	}
	idx, err := args.OpenSearchArgs.Indexer(ctx)
	if err != nil {
		log.Fatalf("create indexer: %v", err)
	}
	if idx != nil {
		cfg.Index = idx
		impOpts = append(impOpts, importer.WithIndexer(idx))
	}
	if args.Stylesheet != "" {
		cfg.Renderer = render.XSLTProc{Binary: args.Xsltproc, Stylesheet: args.Stylesheet}
	}
	cfg.Importer = importer.New(st, impOpts...)

	s, err := server.New(cfg)
	if err != nil {
		log.Fatalf("create server: %v", err)
	}
	if err := s.Run(args.ListenAddr); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

package main

// Rebuilds the OpenSearch mirror from the invoice store, e.g. after a mapping
// change or when indexing failed during an import.

import (
	"context"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/cli"
	"github.com/denysvitali/fatture/pkg/logutils"
)

var args struct {
	Workers  int    `arg:"--workers,env:INDEX_WORKERS" default:"4"`
	LogLevel string `arg:"--log-level,env:LOG_LEVEL" default:"info"`

	cli.DatabaseArgs
	cli.OpenSearchArgs
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

	if args.OsAddr == "" {
		log.Fatalf("--opensearch-addr is required")
	}
	idx, err := args.OpenSearchArgs.Indexer(ctx)
	if err != nil {
		log.Fatalf("create indexer: %v", err)
	}

	st, err := args.DatabaseArgs.Open()
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	indexed, failed, err := idx.Reindex(ctx, st, args.Workers)
	if err != nil {
		log.Fatalf("reindex: %v", err)
	}
	log.Infof("indexed %d invoices into %s, %d failed", indexed, idx.IndexName(), failed)
}

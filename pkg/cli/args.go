package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/denysvitali/fatture/pkg/archive"
	"github.com/denysvitali/fatture/pkg/archive/b2"
	archivedropbox "github.com/denysvitali/fatture/pkg/archive/dropbox"
	"github.com/denysvitali/fatture/pkg/archive/fs"
	"github.com/denysvitali/fatture/pkg/envelope"
	"github.com/denysvitali/fatture/pkg/indexer"
	"github.com/denysvitali/fatture/pkg/sources/dropbox"
	"github.com/denysvitali/fatture/pkg/sources/pec"
	"github.com/denysvitali/fatture/pkg/store"
)

// The structs below are embedded in the argument structs of the commands.

type DatabaseArgs struct {
	DBDriver string `arg:"--db-driver,env:DB_DRIVER" default:"sqlite" help:"sqlite or postgres"`
	DBDSN    string `arg:"--db-dsn,env:DB_DSN" default:"fatture.db" help:"database file (sqlite) or connection string (postgres)"`
	LogSQL   bool   `arg:"--log-sql,env:LOG_SQL"`
}

func (a DatabaseArgs) Open() (*store.Store, error) {
	return store.Open(store.Config{Driver: a.DBDriver, DSN: a.DBDSN, LogSQL: a.LogSQL})
}

type OpenSearchArgs struct {
	OsAddr               string `arg:"--opensearch-addr,env:OPENSEARCH_ADDR" help:"search mirror, disabled when empty"`
	OsIndex              string `arg:"--opensearch-index,env:OPENSEARCH_INDEX" default:"fatture"`
	OsInsecureSkipVerify bool   `arg:"--opensearch-insecure-skip-verify,env:OPENSEARCH_SKIP_TLS"`
	OsCACert             string `arg:"--opensearch-ca-cert,env:OPENSEARCH_CA_CERT" help:"PEM file of a private CA"`
	OsPassword           string `arg:"--opensearch-password,env:OPENSEARCH_PASSWORD"`
	OsUsername           string `arg:"--opensearch-username,env:OPENSEARCH_USERNAME"`
}

// Indexer returns nil when no address is configured.
func (a OpenSearchArgs) Indexer(ctx context.Context) (*indexer.Indexer, error) {
	if a.OsAddr == "" {
		return nil, nil
	}
	opts := []indexer.Option{indexer.WithIndex(a.OsIndex)}
	if a.OsUsername != "" {
		opts = append(opts, indexer.WithUsername(a.OsUsername))
	}
	if a.OsPassword != "" {
		opts = append(opts, indexer.WithPassword(a.OsPassword))
	}
	if a.OsInsecureSkipVerify {
		opts = append(opts, indexer.WithSkipTLS())
	}
	if a.OsCACert != "" {
		opts = append(opts, indexer.WithCACert(a.OsCACert))
	}
	idx, err := indexer.New(a.OsAddr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create indexer: %w", err)
	}
	if err := idx.Init(ctx); err != nil {
		return nil, fmt.Errorf("init indexer: %w", err)
	}
	return idx, nil
}

type DropboxArgs struct {
	DropboxAppKey       string `arg:"--dropbox-app-key,env:DROPBOX_APP_KEY"`
	DropboxAppSecret    string `arg:"--dropbox-app-secret,env:DROPBOX_APP_SECRET"`
	DropboxRefreshToken string `arg:"--dropbox-refresh-token,env:DROPBOX_REFRESH_TOKEN"`
	DropboxRoot         string `arg:"--dropbox-root,env:DROPBOX_ROOT" default:"/fatture"`
}

func (a DropboxArgs) Client(ctx context.Context) (dropbox.API, error) {
	return dropbox.NewClient(ctx, dropbox.Credentials{
		AppKey:       a.DropboxAppKey,
		AppSecret:    a.DropboxAppSecret,
		RefreshToken: a.DropboxRefreshToken,
	})
}

type PECArgs struct {
	PecServer             string `arg:"--pec-server,env:PEC_SERVER" help:"IMAP server, host[:port]"`
	PecUser               string `arg:"--pec-user,env:PEC_USER"`
	PecPassword           string `arg:"--pec-password,env:PEC_PASSWORD"`
	PecFolder             string `arg:"--pec-folder,env:PEC_FOLDER" default:"INBOX"`
	PecInsecureSkipVerify bool   `arg:"--pec-insecure-skip-verify,env:PEC_SKIP_TLS"`
	PecCACert             string `arg:"--pec-ca-cert,env:PEC_CA_CERT" help:"PEM file of a private CA"`
}

func (a PECArgs) Dial(ctx context.Context) (*pec.IMAP, error) {
	return pec.Dial(ctx, pec.Config{
		Server:             a.PecServer,
		User:               a.PecUser,
		Password:           a.PecPassword,
		Folder:             a.PecFolder,
		InsecureSkipVerify: a.PecInsecureSkipVerify,
		CACert:             a.PecCACert,
	})
}

type ArchiveArgs struct {
	ArchiveType  string `arg:"--archive-type,env:ARCHIVE_TYPE" help:"fs, b2 or dropbox; no archive when empty"`
	ArchiveRoot  string `arg:"--archive-root,env:ARCHIVE_ROOT" help:"path prefix inside the archive"`
	FsPath       string `arg:"--fs-path,env:FS_PATH" help:"directory of the fs archive"`
	B2AccountId  string `arg:"--b2-account-id,env:B2_ACCOUNT"`
	B2AccountKey string `arg:"--b2-account-key,env:B2_KEY"`
	B2BucketName string `arg:"--b2-bucket-name,env:B2_BUCKET_NAME"`
	B2Passphrase string `arg:"--b2-passphrase,env:B2_PASSPHRASE" help:"encrypts the archived documents (optional)"`
}

// Storage returns the configured archive storage, nil when none is.
// Dropbox reuses the credentials of dbx.
func (a ArchiveArgs) Storage(ctx context.Context, dbx DropboxArgs) (archive.RWStorage, error) {
	switch strings.ToLower(a.ArchiveType) {
	case "":
		return nil, nil
	case "fs":
		s, err := fs.New(a.FsPath)
		if err != nil {
			return nil, fmt.Errorf("create fs archive: %w", err)
		}
		return s, nil
	case "b2":
		s, err := b2.New(ctx, b2.Config{
			Account:    a.B2AccountId,
			Key:        a.B2AccountKey,
			BucketName: a.B2BucketName,
			Passphrase: a.B2Passphrase,
		})
		if err != nil {
			return nil, fmt.Errorf("create b2 archive: %w", err)
		}
		return s, nil
	case "dropbox":
		api, err := dbx.Client(ctx)
		if err != nil {
			return nil, err
		}
		return archivedropbox.New(api), nil
	}
	return nil, fmt.Errorf("unknown archive type: %s", a.ArchiveType)
}

type EnvelopeArgs struct {
	Unwrapper string `arg:"--unwrapper,env:UNWRAPPER" default:"pkcs7" help:"pkcs7 or openssl"`
	OpenSSL   string `arg:"--openssl,env:OPENSSL_BINARY" default:"openssl"`
}

func (a EnvelopeArgs) New() (envelope.Unwrapper, error) {
	switch strings.ToLower(a.Unwrapper) {
	case "", "pkcs7":
		return envelope.PKCS7{}, nil
	case "openssl":
		return envelope.OpenSSL{Binary: a.OpenSSL}, nil
	}
	return nil, fmt.Errorf("unknown unwrapper: %s", a.Unwrapper)
}

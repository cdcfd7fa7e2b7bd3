package dropbox

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/archive"
	dbx "github.com/denysvitali/fatture/pkg/sources/dropbox"
)

var log = logrus.StandardLogger().WithField("package", "archive/dropbox")

type Dropbox struct {
	api dbx.API
}

var _ archive.RWStorage = (*Dropbox)(nil)

func New(api dbx.API) *Dropbox {
	return &Dropbox{api: api}
}

func (d *Dropbox) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := d.api.GetMetadata(files.NewGetMetadataArg(p))
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	var apiErr files.GetMetadataAPIError
	if !errors.As(err, &apiErr) || apiErr.EndpointError == nil {
		return false
	}
	lookup := apiErr.EndpointError.Path
	return lookup != nil && lookup.Tag == files.LookupErrorNotFound
}

// Store uploads content, replacing any file at p.
func (d *Dropbox) Store(ctx context.Context, p string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	arg := files.NewUploadArg(p)
	arg.Mode = &files.WriteMode{Tagged: dropbox.Tagged{Tag: files.WriteModeOverwrite}}
	meta, err := d.api.Upload(arg, bytes.NewReader(content))
	if err != nil {
		return err
	}
	log.Debugf("uploaded %s (%d bytes)", meta.PathDisplay, meta.Size)
	return nil
}

func (d *Dropbox) Retrieve(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, rc, err := d.api.Download(files.NewDownloadArg(p))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Package dropbox collects invoice documents from a Dropbox folder.
package dropbox

import (
	"context"
	"fmt"
	"io"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"golang.org/x/oauth2"
)

// API is the subset of the Dropbox files client used here and by the
// Dropbox archive. files.Client satisfies it.
type API interface {
	ListFolder(arg *files.ListFolderArg) (*files.ListFolderResult, error)
	ListFolderContinue(arg *files.ListFolderContinueArg) (*files.ListFolderResult, error)
	Download(arg *files.DownloadArg) (*files.FileMetadata, io.ReadCloser, error)
	GetMetadata(arg *files.GetMetadataArg) (files.IsMetadata, error)
	Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error)
}

var _ API = files.Client(nil)

type Credentials struct {
	AppKey       string
	AppSecret    string
	RefreshToken string
}

// NewClient returns a files client whose access tokens are obtained, and
// refreshed, from the long lived refresh token.
func NewClient(ctx context.Context, cred Credentials) (API, error) {
	if cred.AppKey == "" || cred.AppSecret == "" {
		return nil, fmt.Errorf("app key and secret are required")
	}
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}
	conf := &oauth2.Config{
		ClientID:     cred.AppKey,
		ClientSecret: cred.AppSecret,
		Endpoint:     dropbox.OAuthEndpoint(""),
	}
	httpClient := conf.Client(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	return files.New(dropbox.Config{Client: httpClient}), nil
}

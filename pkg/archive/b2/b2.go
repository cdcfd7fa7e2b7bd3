package b2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	rcloneb2 "github.com/rclone/rclone/backend/b2"
	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/config/configmap"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/archive"
	"github.com/denysvitali/fatture/pkg/archive/rclone"
	"github.com/denysvitali/fatture/pkg/crypt"
)

var log = logrus.StandardLogger().WithField("package", "archive/b2")

var _ archive.RWStorage = (*B2)(nil)

type B2 struct {
	b2fs  fs.Fs
	crypt *crypt.Cipher
}

type Config struct {
	Account    string
	Key        string
	BucketName string

	// Passphrase enables encryption of the stored documents.
	Passphrase string
}

func New(ctx context.Context, config Config) (*B2, error) {
	if config.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	if config.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	if config.BucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	b2fs, err := rcloneb2.NewFs(ctx,
		"b2",
		config.BucketName+"/",
		configmap.Simple{
			"account":    config.Account,
			"key":        config.Key,
			"chunk_size": "5M",
		},
	)
	if err != nil {
		return nil, err
	}

	b := &B2{b2fs: b2fs}
	if config.Passphrase == "" {
		log.Warnf("no passphrase provided, archived documents will not be encrypted")
		return b, nil
	}
	b.crypt, err = crypt.New(config.Passphrase)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func remote(p string) string {
	return strings.TrimPrefix(p, "/")
}

func (b *B2) Exists(ctx context.Context, p string) (bool, error) {
	_, err := b.b2fs.NewObject(ctx, remote(p))
	if errors.Is(err, fs.ErrorObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *B2) Store(ctx context.Context, p string, content []byte) error {
	if b.crypt != nil {
		sealed, err := b.crypt.Seal(content)
		if err != nil {
			return err
		}
		content = sealed
	}
	info := rclone.NewObjectInfo(remote(p), time.Now(), int64(len(content)))
	obj, err := b.b2fs.Put(ctx, bytes.NewReader(content), info)
	if err != nil {
		return err
	}
	log.Debugf("uploaded %s (%d bytes)", obj.Remote(), obj.Size())
	return nil
}

func (b *B2) Retrieve(ctx context.Context, p string) ([]byte, error) {
	obj, err := b.b2fs.NewObject(ctx, remote(p))
	if err != nil {
		return nil, err
	}
	rc, err := obj.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if b.crypt != nil {
		return b.crypt.Open(content)
	}
	return content, nil
}

// Package rclone adapts in-memory archive files to the rclone object model.
package rclone

import (
	"context"
	"time"

	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/hash"
)

// ObjectInfo describes a file about to be uploaded through an rclone backend.
type ObjectInfo struct {
	remote  string
	modTime time.Time
	size    int64
}

func NewObjectInfo(remote string, modTime time.Time, size int64) ObjectInfo {
	return ObjectInfo{remote: remote, modTime: modTime, size: size}
}

var _ fs.ObjectInfo = ObjectInfo{}

func (o ObjectInfo) String() string { return o.remote }
func (o ObjectInfo) Remote() string { return o.remote }
func (o ObjectInfo) ModTime(context.Context) time.Time { return o.modTime }
func (o ObjectInfo) Size() int64 { return o.size }
func (o ObjectInfo) Fs() fs.Info { return info{} }
func (o ObjectInfo) Storable() bool { return true }

func (o ObjectInfo) Hash(context.Context, hash.Type) (string, error) {
	return "", hash.ErrUnsupported
}

// info is the source filesystem of an in-memory object.
type info struct{}

var _ fs.Info = info{}

func (info) Name() string { return "memory" }
func (info) Root() string { return "/" }
func (info) String() string { return "memory" }
func (info) Precision() time.Duration { return time.Second }
func (info) Hashes() hash.Set { return hash.Set(hash.None) }
func (info) Features() *fs.Features { return &fs.Features{} }

package rclone_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/denysvitali/fatture/pkg/archive/rclone"
)

func TestObjectInfo(t *testing.T) {
	mod := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	o := rclone.NewObjectInfo("2024/03/Rossi/a.xml", mod, 42)
	assert.Equal(t, "2024/03/Rossi/a.xml", o.Remote())
	assert.Equal(t, int64(42), o.Size())
	assert.Equal(t, mod, o.ModTime(context.Background()))
	assert.True(t, o.Storable())
	assert.Equal(t, "memory", o.Fs().Name())
}

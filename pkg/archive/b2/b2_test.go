package b2_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/fatture/pkg/archive/b2"
)

func TestMain(m *testing.M) {
	logrus.StandardLogger().SetLevel(logrus.DebugLevel)
	os.Exit(m.Run())
}

var testEncryptionKey = "my key"

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := b2.New(context.Background(), b2.Config{Key: "k", BucketName: "b"})
	assert.Error(t, err)
	_, err = b2.New(context.Background(), b2.Config{Account: "a", BucketName: "b"})
	assert.Error(t, err)
	_, err = b2.New(context.Background(), b2.Config{Account: "a", Key: "k"})
	assert.Error(t, err)
}

func TestB2_StoreRetrieveEncrypted(t *testing.T) {
	if os.Getenv("E2E_TEST") != "true" {
		t.Skip("skipping test; E2E_TEST is not set")
	}
	ctx := context.Background()
	s, err := b2.New(ctx, b2.Config{
		Account:    os.Getenv("B2_ACCOUNT"),
		Key:        os.Getenv("B2_KEY"),
		BucketName: os.Getenv("B2_BUCKET_NAME"),
		Passphrase: testEncryptionKey,
	})
	require.NoError(t, err)

	p := fmt.Sprintf("test/%d.xml", time.Now().UnixNano())
	ok, err := s.Exists(ctx, p)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Store(ctx, p, []byte("<a/>")))
	ok, err = s.Exists(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Retrieve(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []byte("<a/>"), got)
}

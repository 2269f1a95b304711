package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage"
)

func newConn(t *testing.T) (storageAdapter.StorageConnection, string) {
	t.Helper()
	dir := t.TempDir()
	p := NewLocalProviderFor(map[string]interface{}{
		"chunks": map[string]interface{}{"type": "local", "base_dir": dir, "bucket_name": "work"},
	})
	conn, err := p.GetConnection("chunks")
	require.NoError(t, err)
	return conn, dir
}

func TestUploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	conn, dir := newConn(t)

	require.NoError(t, conn.Upload(ctx, "", "job-1/orgs_batch_0.csv", strings.NewReader("a,b\n"), "text/csv"))
	assert.FileExists(t, filepath.Join(dir, "work", "job-1", "orgs_batch_0.csv"))

	rc, err := conn.Download(ctx, "", "job-1/orgs_batch_0.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "a,b\n", string(data))

	require.NoError(t, conn.DeleteObject(ctx, "", "job-1/orgs_batch_0.csv"))
	require.NoError(t, conn.DeleteObject(ctx, "", "job-1/orgs_batch_0.csv"), "deleting twice is not an error")
	_, err = os.Stat(filepath.Join(dir, "work", "job-1"))
	assert.True(t, os.IsNotExist(err), "empty job directory is removed")

	_, err = conn.Download(ctx, "", "job-1/orgs_batch_0.csv")
	assert.ErrorIs(t, err, storageAdapter.ErrObjectNotFound)
}

func TestListObjectsByPrefix(t *testing.T) {
	ctx := context.Background()
	conn, _ := newConn(t)
	for _, key := range []string{"job-1/a.csv", "job-1/b.csv", "job-2/a.csv"} {
		require.NoError(t, conn.Upload(ctx, "", key, strings.NewReader("x"), "text/csv"))
	}

	var got []string
	require.NoError(t, conn.ListObjects(ctx, "", "job-1/", func(name string) error {
		got = append(got, name)
		return nil
	}))
	sort.Strings(got)
	assert.Equal(t, []string{"job-1/a.csv", "job-1/b.csv"}, got)
}

func TestRejectsEscapingPaths(t *testing.T) {
	conn, _ := newConn(t)
	err := conn.Upload(context.Background(), "", "../../etc/passwd", strings.NewReader("x"), "")
	assert.ErrorContains(t, err, "escapes base_dir")
}

func TestProviderTypeMismatch(t *testing.T) {
	p := NewLocalProviderFor(map[string]interface{}{"chunks": map[string]interface{}{"type": "gcs"}})
	_, err := p.GetConnection("chunks")
	assert.ErrorContains(t, err, "type mismatch")
}

package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{ name string }

func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) Type() string { return "fake" }
func (c *fakeConn) Name() string { return c.name }
func (c *fakeConn) Upload(context.Context, string, string, io.Reader, string) error {
	return nil
}
func (c *fakeConn) Download(context.Context, string, string) (io.ReadCloser, error) {
	return nil, ErrObjectNotFound
}
func (c *fakeConn) ListObjects(context.Context, string, string, func(string) error) error {
	return nil
}
func (c *fakeConn) DeleteObject(context.Context, string, string) error { return nil }

type fakeProvider struct{ closeErr error }

func (p *fakeProvider) GetConnection(name string) (StorageConnection, error) {
	return &fakeConn{name: name}, nil
}
func (p *fakeProvider) CloseAll() error { return p.closeErr }
func (p *fakeProvider) Type() string    { return "fake" }

func TestResolveByConfiguredType(t *testing.T) {
	r := NewConnectionResolverFor(map[string]interface{}{
		"chunks": map[string]interface{}{"type": "fake"},
		"other":  map[string]interface{}{"type": "s3"},
	}, &fakeProvider{})

	conn, err := r.Resolve("chunks")
	require.NoError(t, err)
	assert.Equal(t, "chunks", conn.Name())

	_, err = r.Resolve("other")
	assert.ErrorContains(t, err, "no storage provider for type 's3'")

	_, err = r.Resolve("missing")
	assert.Error(t, err)
}

func TestCloseAllCollectsErrors(t *testing.T) {
	r := NewConnectionResolverFor(nil, &fakeProvider{closeErr: errors.New("boom")})
	assert.ErrorContains(t, r.CloseAll(), "boom")
}

package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/university-ledger/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ interfaces.StorageBackendFactory = (*StorageBackendFactory)(nil)

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.True(t, b.Available(ctx))
	assert.Equal(t, "file://"+dir, b.LocationURI())

	data := []byte("%PDF-1.7 transcript")
	id, err := b.Store(ctx, data, interfaces.CredentialDocumentType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(data), id)
	assert.FileExists(t, filepath.Join(dir, "document", id.String()))

	again, err := b.Store(ctx, data, interfaces.CredentialDocumentType)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, err := b.Fetch(ctx, id, interfaces.CredentialDocumentType)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = b.Fetch(ctx, id, interfaces.EvidenceType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackend_Tampered(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	id, err := b.Store(ctx, []byte("original"), interfaces.CredentialDocumentType)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document", id.String()), []byte("forged"), 0o644))

	_, err = b.Fetch(ctx, id, interfaces.CredentialDocumentType)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFactory(t *testing.T) {
	sf := NewStorageBackendFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	dir := t.TempDir()

	tests := []struct {
		uri      string
		wantName string
		wantErr  bool
	}{
		{uri: "file://" + dir, wantName: "file-" + filepath.Base(dir)},
		{uri: "s3://transcripts/registry?region=eu-west-1", wantName: "s3-transcripts"},
		{uri: "ipfs://127.0.0.1:5001/?timeout=5s", wantName: "ipfs-127.0.0.1:5001"},
		{uri: "ipfs://127.0.0.1/?timeout=soon", wantErr: true},
		{uri: "vault://127.0.0.1:8200/secret/registry?tls=false&token=root", wantName: "vault-secret-registry"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			loc, err := interfaces.NewStorageBackendLocation(tt.uri)
			require.NoError(t, err)

			backend, err := sf.StorageBackendFor(loc)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, backend.Name())
		})
	}
}

func TestCreateMultiBackend(t *testing.T) {
	sf := NewStorageBackendFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))

	locs, err := ParseLocations([]string{"file://" + t.TempDir(), "ipfs://127.0.0.1/?timeout=never"})
	require.NoError(t, err)

	multi, err := sf.CreateMultiBackend(locs)
	require.NoError(t, err)
	assert.Equal(t, "multi-storage", multi.Name())

	ctx := context.Background()
	id, err := multi.Store(ctx, []byte("degree"), interfaces.CredentialDocumentType)
	require.NoError(t, err)
	got, err := multi.Fetch(ctx, id, interfaces.CredentialDocumentType)
	require.NoError(t, err)
	assert.Equal(t, []byte("degree"), got)

	_, err = sf.CreateMultiBackend(locs[1:])
	assert.Error(t, err)

	_, err = ParseLocations([]string{"github://owner/repo"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestRedact(t *testing.T) {
	loc, err := interfaces.NewStorageBackendLocation("s3://AKIA:secret@bucket/p?token=abc")
	require.NoError(t, err)
	assert.Equal(t, "s3://***@bucket/p?token=***", redact(loc))
}

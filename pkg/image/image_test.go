package image

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shmocker/imgcache/pkg/cache"
)

const validDigest = "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestCachedImage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		image   CachedImage
		wantErr bool
	}{
		{name: "complete", image: CachedImage{Digest: "sha256:deadbeef", Name: "myimage:latest"}},
		{name: "missing digest", image: CachedImage{Name: "myimage:latest"}, wantErr: true},
		{name: "missing name", image: CachedImage{Digest: "sha256:deadbeef"}, wantErr: true},
		{name: "empty", image: CachedImage{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.image.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCachedImage_ParsedDigest(t *testing.T) {
	d, err := CachedImage{Digest: validDigest, Name: "x"}.ParsedDigest()
	require.NoError(t, err)
	assert.Equal(t, "sha256", d.Algorithm().String())

	_, err = CachedImage{Digest: "sha256:deadbeef", Name: "x"}.ParsedDigest()
	assert.Error(t, err)

	_, err = CachedImage{Digest: "not-a-digest", Name: "x"}.ParsedDigest()
	assert.Error(t, err)
}

func TestNewCache_Scenario(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "c")
	want := CachedImage{Digest: "sha256:deadbeef", Name: "myimage:latest"}

	writer, err := NewCache(root)
	require.NoError(t, err)
	require.NoError(t, writer.Save(ctx, "abc123", want))

	_, err = os.Stat(filepath.Join(root, "abc123.json"))
	require.NoError(t, err)

	reader, err := NewCache(root)
	require.NoError(t, err)

	got, ok, err := reader.Get(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = reader.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewCache_MissingField(t *testing.T) {
	root := t.TempDir()
	store, err := NewCache(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path("k"), []byte(`{"digest":"sha256:deadbeef"}`), 0o644))

	_, ok, err := store.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.True(t, cache.IsCorrupt(err))
}

// Package image defines the cached record for built container images.
package image

import (
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/shmocker/imgcache/pkg/cache"
)

// CachedImage is the result of a container image build.
type CachedImage struct {
	// Digest is the content digest of the image, e.g. "sha256:...".
	Digest string `json:"digest" yaml:"digest"`

	// Name is the image reference, e.g. "myimage:latest".
	Name string `json:"name" yaml:"name"`
}

// Validate checks that both fields are present.
func (c CachedImage) Validate() error {
	if c.Digest == "" {
		return errors.New("digest is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// ParsedDigest parses and validates Digest as an OCI content digest.
// Records do not need a well-formed digest to be cached; this is a stricter
// check for callers that want one.
func (c CachedImage) ParsedDigest() (digest.Digest, error) {
	d, err := digest.Parse(c.Digest)
	if err != nil {
		return "", errors.Wrapf(err, "invalid digest %q", c.Digest)
	}
	return d, nil
}

// Store is the file-backed cache for image records.
type Store = cache.FileStore[CachedImage]

// NewCache opens the file-backed image cache rooted at dir.
func NewCache(dir string) (*Store, error) {
	return cache.NewFileStore[CachedImage](dir)
}

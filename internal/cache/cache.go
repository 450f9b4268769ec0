// Package cache connects the image record cache to the build pipeline.
package cache

import (
	"context"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/shmocker/imgcache/pkg/cache"
	"github.com/shmocker/imgcache/pkg/image"
)

// BuildFunc produces an image when no cached record exists.
type BuildFunc func(ctx context.Context) (image.CachedImage, error)

// Manager applies the pipeline's failure policy around an image cache.
type Manager struct {
	store cache.Cache[image.CachedImage]

	// CorruptAsMiss reports undecodable records as misses so the image is
	// rebuilt and the record overwritten.
	CorruptAsMiss bool
}

// New creates a manager over store.
func New(store cache.Cache[image.CachedImage]) *Manager {
	return &Manager{store: store}
}

// Lookup returns the cached image for key.
func (m *Manager) Lookup(ctx context.Context, key cache.Key) (image.CachedImage, bool, error) {
	logger := log.WithField("key", key)

	img, ok, err := m.store.Get(ctx, key)
	if err != nil {
		if m.CorruptAsMiss && cache.IsCorrupt(err) {
			logger.WithError(err).Warn("ignoring corrupt cache record")
			return image.CachedImage{}, false, nil
		}
		return image.CachedImage{}, false, err
	}

	if ok {
		logger.WithField("image", img.Name).Debug("cache hit")
	} else {
		logger.Debug("cache miss")
	}
	return img, ok, nil
}

// Record saves img under key after a build.
func (m *Manager) Record(ctx context.Context, key cache.Key, img image.CachedImage) error {
	if err := img.Validate(); err != nil {
		return errors.Wrapf(err, "refusing to cache image for key %s", key)
	}
	if err := m.store.Save(ctx, key, img); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"key":    key,
		"image":  img.Name,
		"digest": img.Digest,
	}).Debug("cached image")
	return nil
}

// Resolve returns the cached image for key, running build and recording its
// result on a miss. The bool reports whether the image came from the cache.
// Two callers resolving the same key at once may both build; the later save
// wins.
func (m *Manager) Resolve(ctx context.Context, key cache.Key, build BuildFunc) (image.CachedImage, bool, error) {
	img, ok, err := m.Lookup(ctx, key)
	if err != nil {
		return image.CachedImage{}, false, err
	}
	if ok {
		return img, true, nil
	}

	img, err = build(ctx)
	if err != nil {
		return image.CachedImage{}, false, errors.Wrapf(err, "build image for key %s", key)
	}
	if err := m.Record(ctx, key, img); err != nil {
		return image.CachedImage{}, false, err
	}
	return img, false, nil
}

package cache

import (
	"context"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/shmocker/imgcache/pkg/cache"
	"github.com/shmocker/imgcache/pkg/image"
)

// Status is the outcome of checking one record.
type Status string

const (
	StatusOK         Status = "ok"
	StatusCorrupt    Status = "corrupt"    // present but undecodable
	StatusUnreadable Status = "unreadable" // I/O failure
	StatusBadDigest  Status = "bad-digest" // decodable, digest not an OCI digest
	StatusMissing    Status = "missing"    // removed while verifying
)

// VerifyOptions controls Verify.
type VerifyOptions struct {
	// Concurrency bounds parallel reads. Values < 1 mean 1.
	Concurrency int

	// Strict also requires each digest to parse as an OCI digest.
	Strict bool
}

// VerifyResult is the status of a single key.
type VerifyResult struct {
	Key    cache.Key
	Image  image.CachedImage
	Status Status
	Err    error
}

// VerifyReport summarizes a Verify run. Results are in key order.
type VerifyReport struct {
	Results []VerifyResult
}

// Failed returns the results that need attention. Records removed while
// verifying are not failures.
func (r *VerifyReport) Failed() []VerifyResult {
	var failed []VerifyResult
	for _, res := range r.Results {
		if res.Status != StatusOK && res.Status != StatusMissing {
			failed = append(failed, res)
		}
	}
	return failed
}

// Verify reads every record in store and reports which ones decode.
func Verify(ctx context.Context, store *image.Store, opts VerifyOptions) (*VerifyReport, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]VerifyResult, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = verifyKey(gctx, store, key, opts.Strict)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "verify cache")
	}

	for _, res := range results {
		if res.Status != StatusOK {
			entry := log.WithFields(log.Fields{
				"key":    res.Key,
				"status": res.Status,
			})
			if res.Err != nil {
				entry = entry.WithError(res.Err)
			}
			entry.Warn("cache record failed verification")
		}
	}
	return &VerifyReport{Results: results}, nil
}

func verifyKey(ctx context.Context, store *image.Store, key cache.Key, strict bool) VerifyResult {
	res := VerifyResult{Key: key}

	img, ok, err := store.Get(ctx, key)
	switch {
	case err != nil && cache.IsCorrupt(err):
		res.Status = StatusCorrupt
		res.Err = err
		return res
	case err != nil:
		res.Status = StatusUnreadable
		res.Err = err
		return res
	case !ok:
		res.Status = StatusMissing
		return res
	}

	res.Image = img
	if strict {
		if _, err := img.ParsedDigest(); err != nil {
			res.Status = StatusBadDigest
			res.Err = err
			return res
		}
	}
	res.Status = StatusOK
	return res
}

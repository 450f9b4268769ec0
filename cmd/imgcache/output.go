package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	internalcache "github.com/shmocker/imgcache/internal/cache"
	"github.com/shmocker/imgcache/internal/config"
	"github.com/shmocker/imgcache/pkg/cache"
	"github.com/shmocker/imgcache/pkg/image"
)

// reportEntry is the serialized form of one verify result.
type reportEntry struct {
	Key    string `json:"key" yaml:"key"`
	Status string `json:"status" yaml:"status"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeImage(w io.Writer, format string, img image.CachedImage) error {
	switch format {
	case config.OutputText:
		_, err := fmt.Fprintf(w, "Name:   %s\nDigest: %s\n", img.Name, img.Digest)
		return err
	default:
		return encode(w, format, img)
	}
}

func writeKeys(w io.Writer, format string, keys []cache.Key) error {
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}

	switch format {
	case config.OutputText:
		for _, name := range names {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
		}
		return nil
	default:
		return encode(w, format, names)
	}
}

func writeReport(w io.Writer, format string, report *internalcache.VerifyReport) error {
	entries := make([]reportEntry, 0, len(report.Results))
	for _, res := range report.Results {
		entry := reportEntry{
			Key:    res.Key.String(),
			Status: string(res.Status),
			Name:   res.Image.Name,
			Digest: res.Image.Digest,
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		entries = append(entries, entry)
	}

	switch format {
	case config.OutputText:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSTATUS\tNAME")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.Status, e.Name)
		}
		return tw.Flush()
	default:
		return encode(w, format, entries)
	}
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		return errors.Errorf("unsupported output format: %s", format)
	}
}

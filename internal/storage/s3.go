// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage mirrors vocabulary files from an S3-compatible bucket
// into the local directory the FILE source scans. It wraps the AWS SDK v2
// and is configured for path-style access (required by CEPH/Hetzner).
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vocabserve/internal/graph"
)

// objectAPI is the part of the S3 API the mirror uses.
type objectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client mirrors one bucket prefix.
type Client struct {
	s3     objectAPI
	bucket string
	prefix string
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint, bucket or credentials are empty, allowing the
// app to start without storage.
func New(endpoint, region, accessKey, secretKey, bucket, prefix string) (*Client, error) {
	if endpoint == "" || bucket == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(strings.TrimRight(endpoint, "/")),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return newClient(s3Client, bucket, prefix), nil
}

func newClient(api objectAPI, bucket, prefix string) *Client {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Client{s3: api, bucket: bucket, prefix: prefix}
}

// Bucket returns the mirrored bucket name.
func (c *Client) Bucket() string { return c.bucket }

// SyncResult counts what one Sync did.
type SyncResult struct {
	Downloaded int
	Unchanged  int
	Skipped    int
}

// Sync downloads every RDF object under the prefix into dir, keeping the
// key's relative path. Objects whose local copy is at least as new as
// the object are left alone. Keys that are not RDF files or that would
// escape dir are skipped.
func (c *Client) Sync(ctx context.Context, dir string) (SyncResult, error) {
	var res SyncResult
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", dir, err)
	}

	p := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return res, fmt.Errorf("s3 list %s/%s: %w", c.bucket, c.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel, ok := c.localPath(key)
			if !ok {
				res.Skipped++
				continue
			}
			dst := filepath.Join(dir, rel)
			if fresh(dst, aws.ToTime(obj.LastModified)) {
				res.Unchanged++
				continue
			}
			if err := c.download(ctx, key, dst); err != nil {
				return res, err
			}
			res.Downloaded++
		}
	}

	slog.Info("vocabulary files synced",
		"bucket", c.bucket,
		"prefix", c.prefix,
		"downloaded", res.Downloaded,
		"unchanged", res.Unchanged,
		"skipped", res.Skipped,
	)
	return res, nil
}

// localPath maps an object key to a path relative to the sync directory.
func (c *Client) localPath(key string) (string, bool) {
	rel := strings.TrimPrefix(key, c.prefix)
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", false
	}
	if _, err := graph.FormatForPath(rel); err != nil {
		return "", false
	}
	rel = filepath.FromSlash(path.Clean(rel))
	if !filepath.IsLocal(rel) {
		return "", false
	}
	return rel, true
}

func fresh(dst string, modified time.Time) bool {
	info, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return !modified.IsZero() && !info.ModTime().Before(modified)
}

// download writes an object to dst through a temporary file so readers
// never see a partial file.
func (c *Client) download(ctx context.Context, key, dst string) error {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 download %s/%s: %w", c.bucket, key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".sync-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("s3 read body %s/%s: %w", c.bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", dst, err)
	}
	return nil
}

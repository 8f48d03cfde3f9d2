package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"aibos-vmp/core/internal/pkg/logger"
)

// GCSGateway implements Gateway against a Google Cloud Storage bucket.
//
// Server-side encryption is the bucket default (spec 4.B guarantee i) — the
// gateway never accepts caller-supplied encryption keys. Overwrite
// protection (guarantee iv) is enforced via a DoesNotExist precondition on
// the writer, the same conditional-write idiom GCS recommends for
// idempotent, non-clobbering uploads.
type GCSGateway struct {
	client     *gcs.Client
	bucketName string
	ttlSigner  SignedURLSigner
}

// SignedURLSigner supplies the credentials GCS needs to mint V4 signed
// URLs when the client isn't already configured with them (e.g. running
// under workload identity). Nil is valid when the client carries its own
// signing credentials.
type SignedURLSigner struct {
	GoogleAccessID string
	PrivateKey     []byte
}

// NewGCSGateway wraps an existing GCS client for the named bucket.
func NewGCSGateway(client *gcs.Client, bucketName string, signer SignedURLSigner) *GCSGateway {
	return &GCSGateway{client: client, bucketName: bucketName, ttlSigner: signer}
}

// Put writes data to key, refusing to overwrite an existing object.
func (g *GCSGateway) Put(ctx context.Context, key string, data []byte, contentType string) error {
	obj := g.client.Bucket(g.bucketName).Object(key).If(gcs.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 412 {
			return ErrKeyExists
		}
		return fmt.Errorf("close object %s: %w", key, err)
	}

	logger.Debug("storage put", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// GetSignedURL mints a V4 signed GET URL valid for ttl (clamped).
func (g *GCSGateway) GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ttl = clampTTL(ttl)

	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	if g.ttlSigner.GoogleAccessID != "" {
		opts.GoogleAccessID = g.ttlSigner.GoogleAccessID
		opts.PrivateKey = g.ttlSigner.PrivateKey
	}

	url, err := g.client.Bucket(g.bucketName).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}
	return url, nil
}

// Delete best-effort removes the object at key.
func (g *GCSGateway) Delete(ctx context.Context, key string) error {
	if err := g.client.Bucket(g.bucketName).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

var _ Gateway = (*GCSGateway)(nil)

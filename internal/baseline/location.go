package baseline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// BlobScheme prefixes baseline locations stored in Azure Blob Storage.
const BlobScheme = "azblob://"

var errBaselineMissing = errors.New("baseline missing")

// BlobStore is the subset of blob storage used for baselines.
type BlobStore interface {
	Download(ctx context.Context, container, blob string) ([]byte, error)
	Upload(ctx context.Context, container, blob string, data []byte) error
}

type options struct {
	serviceURL string
	blobs      BlobStore
	exists     func(path string) bool
}

// Option customizes baseline resolution and storage.
type Option func(*options)

// WithBlobServiceURL sets the Azure Blob Storage account URL used for
// azblob:// locations.
func WithBlobServiceURL(u string) Option {
	return func(o *options) { o.serviceURL = u }
}

// WithBlobStore replaces the Azure client used for azblob:// locations.
func WithBlobStore(bs BlobStore) Option {
	return func(o *options) { o.blobs = bs }
}

func newOptions(opts []Option) *options {
	o := &options{exists: fileExists}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// ParseBlobLocation splits azblob://<container>/<blob> into its parts.
func ParseBlobLocation(location string) (container, blob string, err error) {
	rest, ok := strings.CutPrefix(location, BlobScheme)
	if !ok {
		return "", "", fmt.Errorf("%q is not an %s location", location, BlobScheme)
	}
	container, blob, _ = strings.Cut(rest, "/")
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("%q must have the form %s<container>/<blob>", location, BlobScheme)
	}
	return container, blob, nil
}

func isBlob(location string) bool {
	return strings.HasPrefix(location, BlobScheme)
}

// resolve returns the location to read, or "" when no default exists.
func (o *options) resolve(location string) (string, error) {
	if location != "" {
		if isBlob(location) {
			if _, _, err := ParseBlobLocation(location); err != nil {
				return "", err
			}
		}
		return location, nil
	}
	for _, candidate := range DefaultLocations {
		if o.exists(candidate) {
			slog.Debug("Using default baseline", "path", candidate)
			return candidate, nil
		}
	}
	return "", nil
}

func (o *options) blobStore() (BlobStore, error) {
	if o.blobs != nil {
		return o.blobs, nil
	}
	if o.serviceURL == "" {
		return nil, errors.New("azblob baseline requires MODELGATE_BLOB_SERVICE_URL to be set")
	}
	bs, err := NewAzureBlobStore(o.serviceURL, nil)
	if err != nil {
		return nil, err
	}
	o.blobs = bs
	return bs, nil
}

func (o *options) read(ctx context.Context, location string) ([]byte, error) {
	if !isBlob(location) {
		data, err := os.ReadFile(location)
		if errors.Is(err, os.ErrNotExist) {
			return nil, errBaselineMissing
		}
		if err != nil {
			return nil, fmt.Errorf("reading baseline: %w", err)
		}
		return data, nil
	}

	container, blob, err := ParseBlobLocation(location)
	if err != nil {
		return nil, err
	}
	bs, err := o.blobStore()
	if err != nil {
		return nil, err
	}
	data, err := bs.Download(ctx, container, blob)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, errBaselineMissing
		}
		return nil, fmt.Errorf("downloading baseline %s: %w", location, err)
	}
	return data, nil
}

func (o *options) write(ctx context.Context, location string, data []byte) error {
	if !isBlob(location) {
		if dir := filepath.Dir(location); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating baseline directory: %w", err)
			}
		}
		if err := os.WriteFile(location, data, 0o644); err != nil {
			return fmt.Errorf("writing baseline: %w", err)
		}
		return nil
	}

	container, blob, err := ParseBlobLocation(location)
	if err != nil {
		return err
	}
	bs, err := o.blobStore()
	if err != nil {
		return err
	}
	if err := bs.Upload(ctx, container, blob, data); err != nil {
		return fmt.Errorf("uploading baseline %s: %w", location, err)
	}
	return nil
}

// AzureBlobStore reads and writes baselines with the Azure Blob Storage SDK.
type AzureBlobStore struct {
	client *azblob.Client
}

// NewAzureBlobStore creates a store for serviceURL. A nil cred uses the
// default Azure credential chain.
func NewAzureBlobStore(serviceURL string, cred azcore.TokenCredential) (*AzureBlobStore, error) {
	if cred == nil {
		dc, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("creating Azure credential: %w", err)
		}
		cred = dc
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return &AzureBlobStore{client: client}, nil
}

func (s *AzureBlobStore) Download(ctx context.Context, container, blob string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

func (s *AzureBlobStore) Upload(ctx context.Context, container, blob string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, container, blob, data, nil)
	return err
}

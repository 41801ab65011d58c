package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/disintegration/imaging"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
)

// BlobDownloader is the part of the Azure client the source needs
type BlobDownloader interface {
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
}

// AzureBlobSource loads images addressed as azblob://container/path/to/blob
type AzureBlobSource struct {
	client BlobDownloader
}

// NewAzureBlobSource connects to the account's blob endpoint with a shared key
func NewAzureBlobSource(accountName, accountKey string) (*AzureBlobSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewConfigError("Invalid Azure storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewConfigError("Failed to create Azure blob client", err)
	}

	return &AzureBlobSource{client: client}, nil
}

// NewAzureBlobSourceWithClient wraps an existing client
func NewAzureBlobSourceWithClient(client BlobDownloader) *AzureBlobSource {
	return &AzureBlobSource{client: client}
}

// ParseBlobURL splits azblob://container/blob into its parts
func ParseBlobURL(blobURL string) (container, blob string, err error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}
	if parsedURL.Scheme != "azblob" {
		return "", "", fmt.Errorf("expected azblob scheme, got %q", parsedURL.Scheme)
	}
	container = parsedURL.Host
	blob = strings.TrimPrefix(parsedURL.Path, "/")
	if container == "" || blob == "" {
		return "", "", fmt.Errorf("blob URL %q must name a container and a blob", blobURL)
	}
	return container, blob, nil
}

// Load downloads and decodes the blob
func (s *AzureBlobSource) Load(ctx context.Context, blobURL string) (image.Image, error) {
	container, blob, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid blob URL", err)
	}

	downloadResponse, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("Blob download failed", err).WithDetails(blobURL)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, err := imaging.Decode(retryReader)
	if err != nil {
		return nil, apperrors.NewDecodeError("Failed to decode blob image", err).WithDetails(blobURL)
	}
	return img, nil
}

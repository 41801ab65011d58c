package factory

import (
	"fmt"

	"github.com/anime-shed/allsky-modules-go/internal/config"
	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/repository"
	"github.com/anime-shed/allsky-modules-go/internal/storage"
)

// StoreType represents the last-run store backends
type StoreType string

const (
	// MemoryStore keeps state for the life of the process
	MemoryStore StoreType = "memory"
	// SQLiteStore persists state between invocations
	SQLiteStore StoreType = "sqlite"
)

// StorageType represents different types of image sources
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// StoreFactory creates stores for last runs and breaker state
type StoreFactory interface {
	CreateStore(storeType StoreType) (repository.Store, error)
}

// StorageFactory creates image sources
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageSource, error)
}

// storeFactory implements StoreFactory
type storeFactory struct {
	dbPath string
}

// NewStoreFactory creates a store factory writing SQLite data to dbPath
func NewStoreFactory(dbPath string) StoreFactory {
	return &storeFactory{dbPath: dbPath}
}

// CreateStore creates a store based on the specified type
func (f *storeFactory) CreateStore(storeType StoreType) (repository.Store, error) {
	switch storeType {
	case MemoryStore:
		return repository.NewMemoryStore(), nil
	case SQLiteStore:
		store, err := repository.NewSQLiteStore(f.dbPath)
		if err != nil {
			return nil, apperrors.NewConfigError("Failed to open last-run store", err).WithDetails(f.dbPath)
		}
		return store, nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported store type: %s", storeType), nil)
	}
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates an image source based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageSource, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout), nil
	case AzureStorage:
		if f.cfg.AzureAccount == "" {
			return nil, apperrors.NewConfigError("azure storage is not configured", nil)
		}
		src, err := storage.NewAzureBlobSource(f.cfg.AzureAccount, f.cfg.AzureKey)
		if err != nil {
			return nil, err
		}
		return src, nil
	case LocalStorage:
		return storage.NewFileSource(), nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported storage type: %s", storageType), nil)
	}
}

// NewImageRouter builds the router every image-reading module shares.
// Azure is only wired when credentials are configured.
func NewImageRouter(f StorageFactory, azureEnabled bool) (*storage.Router, error) {
	files, err := f.CreateStorage(LocalStorage)
	if err != nil {
		return nil, err
	}
	router := storage.NewRouter(files)

	web, err := f.CreateStorage(HTTPStorage)
	if err != nil {
		return nil, err
	}
	router.Handle("http", web)
	router.Handle("https", web)

	if azureEnabled {
		blobs, err := f.CreateStorage(AzureStorage)
		if err != nil {
			return nil, err
		}
		router.Handle("azblob", blobs)
	}
	return router, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StoreFactory   StoreFactory
	StorageFactory StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StoreFactory:   NewStoreFactory(cfg.LastRunDB),
		StorageFactory: NewStorageFactory(cfg),
	}
}

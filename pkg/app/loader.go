package app

import (
	"net/url"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// FileLoader loads the file at a URL.
type FileLoader interface {
	Load(u *url.URL) ([]byte, error)
}

// FileLoaderFunc adapts a function to FileLoader.
type FileLoaderFunc func(u *url.URL) ([]byte, error)

func (f FileLoaderFunc) Load(u *url.URL) ([]byte, error) {
	return f(u)
}

var (
	loadersMu sync.RWMutex
	loaders   = map[string]FileLoader{
		"":     FileLoaderFunc(loadLocal),
		"file": FileLoaderFunc(loadLocal),
	}
)

// RegisterFileLoader makes scheme loadable through LoadFile. Registering a
// scheme twice panics.
func RegisterFileLoader(scheme string, loader FileLoader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()

	if _, exists := loaders[scheme]; exists {
		panic("file loader already registered for scheme " + scheme)
	}
	loaders[scheme] = loader
}

// LoadFile loads fileURL with the loader registered for its scheme. A URL
// without a scheme is a local path.
func LoadFile(fileURL string) ([]byte, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid file url %s", fileURL)
	}

	loadersMu.RLock()
	loader, exists := loaders[u.Scheme]
	loadersMu.RUnlock()
	if !exists {
		return nil, errors.Errorf("no file loader for scheme %q", u.Scheme)
	}

	return loader.Load(u)
}

func loadLocal(u *url.URL) ([]byte, error) {
	return os.ReadFile(u.Path)
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// DownloadFunc stores the object behind url at path.
type DownloadFunc func(ctx context.Context, url string, path string) error

// FileStore keeps local copies of remote datasets so repeated runs skip the download.
type FileStore struct {
	fileDirectory string
	tmpDirectory  string
	downloadFunc  DownloadFunc
	downloadLocks *xsync.MapOf[string, *sync.Mutex]
}

// New creates a FileStore rooted at dir. It takes a function that downloads remote objects.
func New(dir string, downloadFunc DownloadFunc) (*FileStore, error) {
	fs := &FileStore{
		fileDirectory: filepath.Join(dir, "files"),
		tmpDirectory:  filepath.Join(dir, "tmp"),
		downloadFunc:  downloadFunc,
		downloadLocks: xsync.NewMapOf[string, *sync.Mutex](),
	}

	if err := os.MkdirAll(fs.fileDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file store directory: %w", err)
	}
	if err := os.MkdirAll(fs.tmpDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tmp directory: %w", err)
	}
	return fs, nil
}

// IsRemote reports whether location points to an object store rather than a local file.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "s3://") ||
		strings.HasPrefix(location, "https://") ||
		strings.HasPrefix(location, "http://")
}

// Fetch returns a local path holding the dataset at location. Local paths are
// returned as is; remote ones are downloaded once and then served from disk.
func (fs *FileStore) Fetch(ctx context.Context, location string) (string, error) {
	if !IsRemote(location) {
		return location, nil
	}

	key, err := cacheKey(location)
	if err != nil {
		return "", err
	}

	lock, _ := fs.downloadLocks.LoadOrStore(key, &sync.Mutex{})
	lock.Lock()
	defer lock.Unlock()

	filePath := filepath.Join(fs.fileDirectory, key)
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	tmp, err := os.CreateTemp(fs.tmpDirectory, "download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := fs.downloadFunc(ctx, location, tmpPath); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", location, err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return "", fmt.Errorf("failed to move %s to file store: %w", location, err)
	}
	return filePath, nil
}

// cacheKey names the local copy after the location hash and keeps the
// extensions (".csv.zst") so readers can still tell the format.
func cacheKey(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %s: %w", location, err)
	}
	sum := sha256.Sum256([]byte(location))
	name := hex.EncodeToString(sum[:])

	base := path.Base(u.Path)
	if i := strings.Index(base, "."); i >= 0 {
		name += base[i:]
	}
	return name, nil
}

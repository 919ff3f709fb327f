/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package filesystem is a small hierarchical file store kept in an spi storage provider.
//
// It gives agents hosted in a browser, where there is no disk, the file operations they expect: files hold
// strings, directories are created on demand, and paths are slash separated and rooted at "/".
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/storage"
)

var logger = log.New("aries-framework/filesystem")

const (
	recordType = "FileSystem"
	kindTag    = "kind"
	kindFile   = "file"
	kindDir    = "directory"
	root       = "/"

	defaultDataPath  = "/data"
	defaultCachePath = "/cache"
	defaultTempPath  = "/tmp"
)

// errors.
var (
	// ErrNotExist is returned for a path with no file.
	ErrNotExist = fs.ErrNotExist
	// ErrIsDirectory is returned when a file operation names a directory.
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotDirectory is returned when a file stands where a directory is needed.
	ErrNotDirectory = errors.New("not a directory")
	// ErrInvalidPath is returned for an empty path.
	ErrInvalidPath = errors.New("invalid path")
)

type entry struct {
	Path       string    `json:"path"`
	Directory  bool      `json:"directory,omitempty"`
	Data       string    `json:"data,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

func (e *entry) RecordID() string {
	return e.Path
}

func (e *entry) RecordTags() map[string]string {
	if e.Directory {
		return map[string]string{kindTag: kindDir}
	}

	return map[string]string{kindTag: kindFile}
}

// FileSystem stores files and directories as records of one store.
type FileSystem struct {
	entries   *storage.Service[*entry]
	client    *http.Client
	dataPath  string
	cachePath string
	tempPath  string
	mu        sync.Mutex
}

// Opt configures a FileSystem.
type Opt func(f *FileSystem)

// WithHTTPClient sets the client of DownloadToFile.
func WithHTTPClient(c *http.Client) Opt {
	return func(f *FileSystem) {
		f.client = c
	}
}

// WithPaths sets the well-known data, cache and temp directories.
func WithPaths(dataPath, cachePath, tempPath string) Opt {
	return func(f *FileSystem) {
		f.dataPath, f.cachePath, f.tempPath = dataPath, cachePath, tempPath
	}
}

// New opens the file system kept in p.
func New(p spi.Provider, opts ...Opt) (*FileSystem, error) {
	entries, err := storage.NewService[*entry](p, recordType)
	if err != nil {
		return nil, fmt.Errorf("open file system: %w", err)
	}

	f := &FileSystem{
		entries:   entries,
		client:    http.DefaultClient,
		dataPath:  defaultDataPath,
		cachePath: defaultCachePath,
		tempPath:  defaultTempPath,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// DataPath is the directory for persistent agent data.
func (f *FileSystem) DataPath() string { return f.dataPath }

// CachePath is the directory for data that can be rebuilt.
func (f *FileSystem) CachePath() string { return f.cachePath }

// TempPath is the directory for scratch files.
func (f *FileSystem) TempPath() string { return f.tempPath }

// Exists reports whether a file or directory is at p.
func (f *FileSystem) Exists(p string) (bool, error) {
	p, err := clean(p)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	_, err = f.get(p)
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}

	return err == nil, err
}

// CreateDirectory creates the directory p and any missing parents.
func (f *FileSystem) CreateDirectory(p string) error {
	p, err := clean(p)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.mkdirAll(p)
}

// Write stores data as the content of the file p, creating missing parent directories.
func (f *FileSystem) Write(p, data string) error {
	p, err := clean(p)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.write(p, data)
}

// Read returns the content of the file p.
func (f *FileSystem) Read(p string) (string, error) {
	p, err := clean(p)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.file(p)
	if err != nil {
		return "", err
	}

	return e.Data, nil
}

// CopyFile copies the file src to dst, replacing dst when it is a file.
func (f *FileSystem) CopyFile(src, dst string) error {
	src, err := clean(src)
	if err != nil {
		return err
	}

	dst, err = clean(dst)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	e, err := f.file(src)
	if err != nil {
		return err
	}

	return f.write(dst, e.Data)
}

// Delete removes the file p.
func (f *FileSystem) Delete(p string) error {
	p, err := clean(p)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err = f.file(p); err != nil {
		return err
	}

	return f.entries.DeleteByID(p)
}

// DownloadToFile fetches url and stores the response body as the file p.
func (f *FileSystem) DownloadToFile(ctx context.Context, url, p string) error {
	p, err := clean(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logger.Warnf("failed to close download response body: %s", e)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("download %s: server answered %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err = f.write(p, string(body)); err != nil {
		return err
	}

	logger.Debugf("downloaded %s to %s (%d bytes)", url, p, len(body))

	return nil
}

func (f *FileSystem) write(p, data string) error {
	if p == root {
		return fmt.Errorf("%s: %w", p, ErrIsDirectory)
	}

	if err := f.mkdirAll(path.Dir(p)); err != nil {
		return err
	}

	e := &entry{Path: p, Data: data, ModifiedAt: time.Now().UTC()}

	existing, err := f.get(p)

	switch {
	case errors.Is(err, ErrNotExist):
		return f.entries.Save(e)
	case err != nil:
		return err
	case existing.Directory:
		return fmt.Errorf("%s: %w", p, ErrIsDirectory)
	default:
		return f.entries.Update(e)
	}
}

func (f *FileSystem) mkdirAll(p string) error {
	if p == root {
		return nil
	}

	if err := f.mkdirAll(path.Dir(p)); err != nil {
		return err
	}

	e, err := f.get(p)

	switch {
	case errors.Is(err, ErrNotExist):
		return f.entries.Save(&entry{Path: p, Directory: true, ModifiedAt: time.Now().UTC()})
	case err != nil:
		return err
	case !e.Directory:
		return fmt.Errorf("%s: %w", p, ErrNotDirectory)
	default:
		return nil
	}
}

func (f *FileSystem) file(p string) (*entry, error) {
	if p == root {
		return nil, fmt.Errorf("%s: %w", p, ErrIsDirectory)
	}

	e, err := f.get(p)
	if err != nil {
		return nil, err
	}

	if e.Directory {
		return nil, fmt.Errorf("%s: %w", p, ErrIsDirectory)
	}

	return e, nil
}

func (f *FileSystem) get(p string) (*entry, error) {
	if p == root {
		return &entry{Path: root, Directory: true}, nil
	}

	e, err := f.entries.GetByID(p)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotExist)
	}

	return e, err
}

// clean returns the rooted, slash separated form of p.
func clean(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", ErrInvalidPath
	}

	return path.Clean(root + p), nil
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package filesystem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	mockstorage "github.com/hyperledger/aries-framework-go/component/storageutil/mock/storage"
	"github.com/stretchr/testify/require"
)

func newFileSystem(t *testing.T) *FileSystem {
	t.Helper()

	f, err := New(mem.NewProvider())
	require.NoError(t, err)

	return f
}

func TestNew(t *testing.T) {
	t.Run("default paths", func(t *testing.T) {
		f := newFileSystem(t)
		require.Equal(t, "/data", f.DataPath())
		require.Equal(t, "/cache", f.CachePath())
		require.Equal(t, "/tmp", f.TempPath())
	})

	t.Run("custom paths", func(t *testing.T) {
		f, err := New(mem.NewProvider(), WithPaths("/d", "/c", "/t"))
		require.NoError(t, err)
		require.Equal(t, "/d", f.DataPath())
		require.Equal(t, "/c", f.CachePath())
		require.Equal(t, "/t", f.TempPath())
	})

	t.Run("open store failure", func(t *testing.T) {
		p := mockstorage.NewMockStoreProvider()
		p.ErrOpenStoreHandle = errors.New("open failure")

		_, err := New(p)
		require.ErrorContains(t, err, "open failure")
	})
}

func TestFiles(t *testing.T) {
	f := newFileSystem(t)

	t.Run("write and read", func(t *testing.T) {
		require.NoError(t, f.Write("/data/genesis/pool.txn", "txn1"))

		data, err := f.Read("data/genesis/../genesis/pool.txn")
		require.NoError(t, err)
		require.Equal(t, "txn1", data)

		require.NoError(t, f.Write("/data/genesis/pool.txn", "txn2"))

		data, err = f.Read("/data/genesis/pool.txn")
		require.NoError(t, err)
		require.Equal(t, "txn2", data)
	})

	t.Run("parents are created", func(t *testing.T) {
		for _, p := range []string{"/", "/data", "/data/genesis", "/data/genesis/pool.txn"} {
			ok, err := f.Exists(p)
			require.NoError(t, err)
			require.True(t, ok, p)
		}

		ok, err := f.Exists("/data/other")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("copy", func(t *testing.T) {
		require.NoError(t, f.CopyFile("/data/genesis/pool.txn", "/tmp/copy.txn"))

		data, err := f.Read("/tmp/copy.txn")
		require.NoError(t, err)
		require.Equal(t, "txn2", data)

		require.ErrorIs(t, f.CopyFile("/tmp/missing", "/tmp/x"), ErrNotExist)
		require.ErrorIs(t, f.CopyFile("/tmp", "/tmp/x"), ErrIsDirectory)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.Delete("/tmp/copy.txn"))

		ok, err := f.Exists("/tmp/copy.txn")
		require.NoError(t, err)
		require.False(t, ok)

		require.ErrorIs(t, f.Delete("/tmp/copy.txn"), ErrNotExist)
		require.ErrorIs(t, f.Delete("/tmp"), ErrIsDirectory)
		require.ErrorIs(t, f.Delete("/"), ErrIsDirectory)
	})

	t.Run("directories", func(t *testing.T) {
		require.NoError(t, f.CreateDirectory("/cache/a/b"))
		require.NoError(t, f.CreateDirectory("/cache/a/b"))

		ok, err := f.Exists("/cache/a")
		require.NoError(t, err)
		require.True(t, ok)

		_, err = f.Read("/cache/a")
		require.ErrorIs(t, err, ErrIsDirectory)

		require.ErrorIs(t, f.Write("/cache/a", "x"), ErrIsDirectory)
		require.ErrorIs(t, f.Write("/", "x"), ErrIsDirectory)
		require.ErrorIs(t, f.CreateDirectory("/data/genesis/pool.txn/sub"), ErrNotDirectory)
		require.ErrorIs(t, f.Write("/data/genesis/pool.txn/sub", "x"), ErrNotDirectory)
	})

	t.Run("invalid paths", func(t *testing.T) {
		_, err := f.Exists("")
		require.ErrorIs(t, err, ErrInvalidPath)

		_, err = f.Read(" ")
		require.ErrorIs(t, err, ErrInvalidPath)

		require.ErrorIs(t, f.Write("", "x"), ErrInvalidPath)
		require.ErrorIs(t, f.CreateDirectory(""), ErrInvalidPath)
		require.ErrorIs(t, f.CopyFile("", "/x"), ErrInvalidPath)
		require.ErrorIs(t, f.CopyFile("/data/genesis/pool.txn", ""), ErrInvalidPath)
		require.ErrorIs(t, f.Delete(""), ErrInvalidPath)
		require.ErrorIs(t, f.DownloadToFile(context.Background(), "http://localhost", ""), ErrInvalidPath)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := f.Read("/nothing")
		require.ErrorIs(t, err, ErrNotExist)
	})
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		fmt.Fprint(w, "genesis transactions")
	}))
	defer srv.Close()

	f, err := New(mem.NewProvider(), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		require.NoError(t, f.DownloadToFile(context.Background(), srv.URL+"/genesis", "/data/pool.txn"))

		data, err := f.Read("/data/pool.txn")
		require.NoError(t, err)
		require.Equal(t, "genesis transactions", data)
	})

	t.Run("server error", func(t *testing.T) {
		err := f.DownloadToFile(context.Background(), srv.URL+"/missing", "/data/missing.txn")
		require.ErrorContains(t, err, "404")

		ok, err := f.Exists("/data/missing.txn")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("invalid url", func(t *testing.T) {
		require.Error(t, f.DownloadToFile(context.Background(), "http://%zz", "/data/x"))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, f.DownloadToFile(ctx, srv.URL+"/genesis", "/data/x"), context.Canceled)
	})
}

func TestStoreFailure(t *testing.T) {
	p := mockstorage.NewMockStoreProvider()

	f, err := New(p)
	require.NoError(t, err)

	p.Store.ErrGet = errors.New("get failure")

	_, err = f.Exists("/data")
	require.ErrorContains(t, err, "get failure")

	require.ErrorContains(t, f.Write("/data/x", "x"), "get failure")
}

package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/filestore"
)

// Source supplies migration SQL by file name.
type Source interface {
	// Read returns the full text of the named migration.
	Read(ctx context.Context, name string) ([]byte, error)
	// String names the source in logs.
	String() string
}

// Checker is implemented by sources that can confirm a migration exists
// without reading it. Runner.Run checks every planned file before the first
// execution.
type Checker interface {
	Check(ctx context.Context, name string) error
}

var (
	_ Checker = DirSource{}
	_ Checker = StoreSource{}
)

// DirSource reads migrations from a local directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "read "+name, err)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("migration %s not found in %s", name, s.Dir), err)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "read "+name, err)
	}
	return data, nil
}

func (s DirSource) Check(_ context.Context, name string) error {
	_, err := os.Stat(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("migration %s not found in %s", name, s.Dir), err)
	}
	if err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "stat "+name, err)
	}
	return nil
}

func (s DirSource) String() string { return "dir:" + s.Dir }

// StoreSource reads migrations from an object store bucket under a key prefix.
type StoreSource struct {
	Store  filestore.Store
	Bucket string
	Prefix string
}

func (s StoreSource) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

func (s StoreSource) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.Store.GetObject(ctx, s.Bucket, s.key(name))
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "read object "+s.key(name), err)
	}
	if info := obj.Info(); info != nil && info.Size >= 0 && int64(len(data)) != info.Size {
		return nil, errs.Newf(errs.ErrKindConnectionFailed, "read object %s: got %d of %d bytes", s.key(name), len(data), info.Size)
	}
	return data, nil
}

func (s StoreSource) Check(ctx context.Context, name string) error {
	_, err := s.Store.StatObject(ctx, s.Bucket, s.key(name))
	return err
}

func (s StoreSource) String() string { return "bucket:" + s.Bucket + "/" + s.Prefix }

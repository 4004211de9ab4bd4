package codegen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/djb258/client-sub001/internal/errs"
)

// Write materialises out under root, creating directories as needed. Each
// file is written to a temporary sibling and renamed into place so a reader
// never observes a half-written file.
func Write(root string, out *Output) error {
	for _, f := range out.Files() {
		dst := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := writeFile(dst, []byte(f.Content)); err != nil {
			return errs.Wrap(errs.ErrKindGeneration, fmt.Sprintf("write %s", f.Path), err)
		}
	}
	return nil
}

func writeFile(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, dst)
}

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"imgvault/api/internal/apperr"
)

// AssetStore is the filesystem namespace for originals and their
// cached derivatives. The images directory is the sole long-lived
// owner of an asset; derivatives live in a separate cache directory
// and are named by the original's id plus requested dimensions.
type AssetStore struct {
	imagesDir string
	cacheDir  string
}

func New(imagesDir, cacheDir string) (*AssetStore, error) {
	absImages, err := filepath.Abs(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("resolve images dir: %w", err)
	}
	absCache, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	if err := os.MkdirAll(absImages, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	if err := os.MkdirAll(absCache, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &AssetStore{imagesDir: absImages, cacheDir: absCache}, nil
}

// Put streams r into the images directory under name. The write lands
// in a temp file first and is renamed into place, so a concurrent
// reader never observes a partial file.
func (s *AssetStore) Put(name string, r io.Reader) (string, error) {
	dst, err := s.contain(s.imagesDir, name)
	if err != nil {
		return "", err
	}
	if err := atomicWrite(dst, r); err != nil {
		return "", fmt.Errorf("write asset %s: %w", name, err)
	}
	return dst, nil
}

// PutDerivative writes a rendered derivative into the cache directory.
// Rename is atomic, so two concurrent writers of the same key simply
// race to install identical content.
func (s *AssetStore) PutDerivative(name string, data []byte) (string, error) {
	dst, err := s.contain(s.cacheDir, name)
	if err != nil {
		return "", err
	}
	if err := atomicWrite(dst, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write derivative %s: %w", name, err)
	}
	return dst, nil
}

// Resolve maps name to an absolute path inside the images directory.
// Hostile names (traversal segments, absolute overrides, symlink
// escapes) fail with a traversal error; a well-formed name with no
// file behind it is not_found.
func (s *AssetStore) Resolve(name string) (string, error) {
	return s.resolve(s.imagesDir, name)
}

// ResolveDerivative is Resolve against the cache directory.
func (s *AssetStore) ResolveDerivative(name string) (string, error) {
	return s.resolve(s.cacheDir, name)
}

// DerivativePath returns the contained cache path for name without
// requiring the file to exist yet.
func (s *AssetStore) DerivativePath(name string) (string, error) {
	return s.contain(s.cacheDir, name)
}

func (s *AssetStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes the original named name and every derivative whose
// filename starts with the original's id. It returns how many
// derivative files were removed. A missing original is not_found; the
// cascade tolerates files vanishing underneath it.
func (s *AssetStore) Delete(name string) (int, error) {
	path, err := s.resolve(s.imagesDir, name)
	if err != nil {
		return 0, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, apperr.NotFound("file not found")
		}
		return 0, fmt.Errorf("remove asset %s: %w", name, err)
	}

	id := strings.TrimSuffix(name, filepath.Ext(name))
	removed := 0
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return removed, fmt.Errorf("scan cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), id+"_") {
			continue
		}
		if err := os.Remove(filepath.Join(s.cacheDir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *AssetStore) resolve(dir, name string) (string, error) {
	path, err := s.contain(dir, name)
	if err != nil {
		return "", err
	}
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperr.NotFound("file not found")
		}
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		// Symlinks inside the root could still point outside it.
		real, err := filepath.EvalSymlinks(path)
		if err != nil || !within(dir, real) {
			return "", apperr.Traversal("invalid filename")
		}
	}
	return path, nil
}

// contain joins name onto dir and rejects any result that escapes it.
// This is the hard security boundary: no path derived from client
// input is used without passing through here.
func (s *AssetStore) contain(dir, name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", apperr.Traversal("invalid filename")
	}
	if filepath.IsAbs(name) {
		return "", apperr.Traversal("invalid filename")
	}
	// Dot-dot segments are rejected outright rather than cleaned away:
	// a name containing them is hostile input, not a normalization
	// problem.
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == ".." {
			return "", apperr.Traversal("invalid filename")
		}
	}
	path := filepath.Join(dir, name)
	if !within(dir, path) {
		return "", apperr.Traversal("invalid filename")
	}
	return path, nil
}

func within(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func atomicWrite(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

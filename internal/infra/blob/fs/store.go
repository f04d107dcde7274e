// Package fs serves blobs from plain files under a root directory. Keys are
// slash separated paths relative to the root; content types come from the
// file extension.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"rococodb/internal/blob/core"
)

// Store implements core.Store on a directory tree.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("blob fs root required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Root returns the directory the store serves.
func (s *Store) Root() string { return s.root }

// sanitizeKey rejects keys that would escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := path.Clean(filepath.ToSlash(key))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key traversal %q", key)
	}
	return clean, nil
}

func (s *Store) pathFor(key string) (string, string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	return k, filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, _ core.PutOptions) (core.Info, error) {
	k, p, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return core.Info{}, err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if errors.Is(err, fs.ErrExist) {
		return core.Info{}, fmt.Errorf("put %s: %w", key, core.ErrExists)
	}
	if err != nil {
		return core.Info{}, err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return core.Info{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return core.Info{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return core.Info{}, err
	}
	return infoFor(k, st), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	k, p, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("get %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return core.Info{}, nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return core.Info{}, nil, fmt.Errorf("get %s: %w", key, core.ErrNotFound)
	}
	return infoFor(k, st), f, nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	_, p, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, infoFor(key, st))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func infoFor(key string, st fs.FileInfo) core.Info {
	return core.Info{
		Key:          key,
		Size:         st.Size(),
		ContentType:  mime.TypeByExtension(path.Ext(key)),
		LastModified: st.ModTime().UTC(),
	}
}

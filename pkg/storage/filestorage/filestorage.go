package filestorage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/menta2k/avatar-crop/pkg/storage"
)

// FileStorage writes avatars below a base directory
type FileStorage struct {
	BaseDir         string
	MkdirPermission os.FileMode
	WritePermission os.FileMode
	SaveErrIfExists bool
}

var _ storage.Storage = (*FileStorage)(nil)

func New(baseDir string, options ...Option) *FileStorage {
	s := &FileStorage{
		BaseDir:         baseDir,
		MkdirPermission: 0755,
		WritePermission: 0644,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Path resolves a key to a file path under BaseDir
func (s *FileStorage) Path(key string) (string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.BaseDir, filepath.FromSlash(key)), nil
}

func (s *FileStorage) Put(ctx context.Context, key string, data []byte) (err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	p, err := s.Path(key)
	if err != nil {
		return
	}
	if err = os.MkdirAll(filepath.Dir(p), s.MkdirPermission); err != nil {
		return
	}
	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if s.SaveErrIfExists {
		flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	w, err := os.OpenFile(p, flag, s.WritePermission)
	if err != nil {
		return
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = w.Write(data)
	return
}

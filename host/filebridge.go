package host

import (
	"os"
	"path/filepath"
)

// FileBridge is the in-sandbox filesystem bridge, delegated to whatever
// implementation the caller injects. Host exposes its five operations as
// thin pass-throughs, keeping the operation namespace complete without
// pulling a real sandbox into this package's scope.
type FileBridge interface {
	WriteFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	List(path string) ([]string, error)
	ListDetailed(path string) ([]os.FileInfo, error)
	RemoveAll(path string) error
}

// OSFileBridge is a plain os-backed FileBridge rooted at one directory,
// used only by cmd/sabhost's demo — the core itself never assumes a real
// filesystem exists.
type OSFileBridge struct {
	Root string
}

func (b OSFileBridge) resolve(path string) string {
	return filepath.Join(b.Root, filepath.Clean("/"+path))
}

func (b OSFileBridge) WriteFile(path string, data []byte) error {
	full := b.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (b OSFileBridge) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(b.resolve(path))
}

func (b OSFileBridge) List(path string) ([]string, error) {
	entries, err := os.ReadDir(b.resolve(path))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (b OSFileBridge) ListDetailed(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(b.resolve(path))
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (b OSFileBridge) RemoveAll(path string) error {
	return os.RemoveAll(b.resolve(path))
}

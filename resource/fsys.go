package resource

import (
	"os"
)

// Static and compile-time check to ensure osFileSystem implements
// FileSystem interface.
var _ FileSystem = (*osFileSystem)(nil)

// OSFileSystem returns a FileSystem backed by the operating system.
func OSFileSystem() FileSystem {
	return osFileSystem{}
}

type osFileSystem struct{}

func (osFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (osFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (osFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (osFileSystem) RemoveDir(path string) error {
	return os.Remove(path)
}

func (osFileSystem) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}

	return names, nil
}

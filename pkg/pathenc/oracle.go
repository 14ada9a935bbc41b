package pathenc

import (
	"os"
)

// Oracle answers directory-listing and existence questions during
// reconstruction. The greedy walk treats its answers as ground truth.
// Implementations must be safe for concurrent use.
type Oracle interface {
	// List returns the child entry names of dir in directory order.
	List(dir string) ([]string, error)
	// Exists reports whether the path currently resolves on disk.
	Exists(path string) bool
}

// osOracle reads the live filesystem.
type osOracle struct{}

// NewOSOracle returns an Oracle backed by the real filesystem.
func NewOSOracle() Oracle {
	return osOracle{}
}

func (osOracle) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (osOracle) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

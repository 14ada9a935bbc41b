package pathenc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/taskdeck/core/errors"
)

// metadataFileName is the sidecar each flattened project directory may carry.
const metadataFileName = "metadata.json"

// projectMetadata is the on-disk shape of the sidecar.
type projectMetadata struct {
	Path string `json:"path"`
}

// MetadataCache records the last known real path for flattened directory
// names, one metadata.json sidecar per directory under the projects root.
//
// The cache is write-once: the first resolution persisted for a directory is
// treated as authoritative and is never overwritten, even if a later
// heuristic disagrees. This keeps reconstruction stable across runs.
type MetadataCache struct {
	projectsRoot string

	mu  sync.RWMutex
	mem map[string]string
}

// NewMetadataCache creates a cache over the given projects root. The root is
// explicit so tests and callers with several providers each get their own
// cache; there is no process-wide instance.
func NewMetadataCache(projectsRoot string) *MetadataCache {
	return &MetadataCache{
		projectsRoot: projectsRoot,
		mem:          make(map[string]string),
	}
}

// Get returns the cached real path for a flattened name, if one was ever
// persisted.
func (c *MetadataCache) Get(flattenedName string) (string, bool) {
	c.mu.RLock()
	if path, ok := c.mem[flattenedName]; ok {
		c.mu.RUnlock()
		return path, true
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(c.sidecarPath(flattenedName))
	if err != nil {
		return "", false
	}

	var meta projectMetadata
	if err := json.Unmarshal(data, &meta); err != nil || meta.Path == "" {
		return "", false
	}

	c.mu.Lock()
	c.mem[flattenedName] = meta.Path
	c.mu.Unlock()
	return meta.Path, true
}

// Put persists a resolution for a flattened name. It is a silent no-op when
// an entry already exists (the no-overwrite contract) or when the flattened
// directory itself is missing, since fabricating project directories is not
// this cache's job. Concurrent writers racing on the same directory are
// benign: the content is tiny and idempotent, last writer wins.
func (c *MetadataCache) Put(flattenedName, realPath string) error {
	if flattenedName == "" || realPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "metadata cache needs both a flattened name and a path")
	}

	if _, ok := c.Get(flattenedName); ok {
		return nil
	}

	dir := filepath.Join(c.projectsRoot, flattenedName)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}

	data, err := json.MarshalIndent(projectMetadata{Path: realPath}, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "marshal metadata")
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFileName), data, 0644); err != nil {
		return errors.IoFailed(filepath.Join(dir, metadataFileName), err)
	}

	c.mu.Lock()
	c.mem[flattenedName] = realPath
	c.mu.Unlock()
	return nil
}

func (c *MetadataCache) sidecarPath(flattenedName string) string {
	return filepath.Join(c.projectsRoot, flattenedName, metadataFileName)
}

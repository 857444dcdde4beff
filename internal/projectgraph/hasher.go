package projectgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// graphHash stably fingerprints the workspace's project set: every alias,
// every id->source mapping, and every VCS content hash of a project or
// inherited-tasks config file, each written in sorted-key order so the
// digest is independent of map iteration order. Used by Preload to decide
// IsCached against the persisted projects-state cache.
func graphHash(aliases, sources, fileHashes map[string]string) string {
	h := sha256.New()

	for _, alias := range sortedKeys(aliases) {
		h.Write([]byte("alias:"))
		h.Write([]byte(alias))
		h.Write([]byte("="))
		h.Write([]byte(aliases[alias]))
		h.Write([]byte("\n"))
	}

	for _, id := range sortedKeys(sources) {
		h.Write([]byte("source:"))
		h.Write([]byte(id))
		h.Write([]byte("="))
		h.Write([]byte(sources[id]))
		h.Write([]byte("\n"))
	}

	for _, path := range sortedKeys(fileHashes) {
		h.Write([]byte("file:"))
		h.Write([]byte(path))
		h.Write([]byte("="))
		h.Write([]byte(fileHashes[path]))
		h.Write([]byte("\n"))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

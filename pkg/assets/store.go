// Package assets implements the asset store (C3): resolving a logical
// reference name to one or more on-disk image paths, given an app's images
// root plus its "system/" and "contacts/" sub-spaces.
package assets

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Store resolves logical reference names against one app's images root. It
// is built once per handler at startup and is read-only afterward; results
// are cached because resolution walks the filesystem.
type Store struct {
	mu      sync.RWMutex
	root    string
	aliases map[string]string
	cache   map[string]string
}

// NewStore builds a store rooted at imagesRoot with the given alias table
// (display name -> reference name, as loaded from an app's aliases.yaml).
func NewStore(imagesRoot string, aliases map[string]string) *Store {
	normalizedAliases := make(map[string]string, len(aliases))
	for k, v := range aliases {
		normalizedAliases[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &Store{
		root:    imagesRoot,
		aliases: normalizedAliases,
		cache:   map[string]string{},
	}
}

// GetImage resolves a logical name in order: (i) cache; (ii) alias table;
// (iii) exact file in the root; (iv) exact file in contacts/; (v) fuzzy
// substring match in root and contacts/; (vi) not found (ok=false, no
// error — a missing reference is a normal outcome, not a failure).
func (s *Store) GetImage(name string) (path string, ok bool) {
	key := strings.TrimSpace(name)
	if key == "" {
		return "", false
	}

	s.mu.RLock()
	if p, cached := s.cache[key]; cached {
		s.mu.RUnlock()
		return p, true
	}
	s.mu.RUnlock()

	resolved, ok := s.resolve(key)
	if !ok {
		return "", false
	}

	s.mu.Lock()
	s.cache[key] = resolved
	s.mu.Unlock()
	return resolved, true
}

func (s *Store) resolve(key string) (string, bool) {
	if aliased, ok := s.aliases[strings.ToLower(key)]; ok {
		key = aliased
	}

	if p, ok := s.findExact(s.root, key); ok {
		return p, true
	}
	if p, ok := s.findExact(filepath.Join(s.root, "contacts"), key); ok {
		return p, true
	}
	if p, ok := s.findFuzzy(s.root, key); ok {
		return p, true
	}
	if p, ok := s.findFuzzy(filepath.Join(s.root, "contacts"), key); ok {
		return p, true
	}
	return "", false
}

func (s *Store) findExact(dir, stem string) (string, bool) {
	for _, ext := range imageExtensions {
		candidate := filepath.Join(dir, stem+ext)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (s *Store) findFuzzy(dir, stem string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	needle := strings.ToLower(stem)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		ext := filepath.Ext(base)
		if !isImageExt(ext) {
			continue
		}
		nameStem := strings.ToLower(strings.TrimSuffix(base, ext))
		if strings.Contains(nameStem, needle) {
			return filepath.Join(dir, base), true
		}
	}
	return "", false
}

// GetImageVariants returns the main path for name followed by any
// `_v2, _v3, ...` sibling variants, in order. Variants begin at _v2 by
// convention; a gap (e.g. _v2 present but _v3 absent) stops enumeration.
func (s *Store) GetImageVariants(name string) []string {
	main, ok := s.GetImage(name)
	if !ok {
		return nil
	}
	variants := []string{main}

	ext := filepath.Ext(main)
	base := strings.TrimSuffix(main, ext)
	for n := 2; ; n++ {
		candidate := base + "_v" + strconv.Itoa(n) + ext
		if !fileExists(candidate) {
			break
		}
		variants = append(variants, candidate)
	}
	return variants
}

// List walks the root and its system/ and contacts/ sub-spaces, returning
// every recognized image file found.
func (s *Store) List() []string {
	var out []string
	for _, sub := range []string{"", "system", "contacts"} {
		dir := s.root
		if sub != "" {
			dir = filepath.Join(s.root, sub)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if isImageExt(filepath.Ext(e.Name())) {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	return out
}

func isImageExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, valid := range imageExtensions {
		if ext == valid {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

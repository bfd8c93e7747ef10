package muncher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	enry "github.com/src-d/enry/v2"

	"github.com/stackmuncher/stm/internal/core"
)

// Store holds every successfully loaded Muncher, indexed by name and by
// the file-name patterns that select it. Extension-to-muncher mapping is
// mechanical (§4.F step 3): each muncher file is named after the
// language it classifies and is consulted by extension first; enry's
// filename/extension-based language guess is a fallback for extensions
// the store has no direct entry for.
type Store struct {
	byName      map[string]*Muncher
	byExtension map[string]*Muncher
	byLanguage  map[string]*Muncher
}

// LoadDir reads every *.json file in dir, compiling each as a Muncher.
// Files that fail to compile are skipped; their failures are logged as
// a single aggregate warning but do not abort the load (§4.F step 1).
// LoadDir fails only when the directory itself cannot be read or zero
// munchers were usable (ErrRulesLoad).
func LoadDir(dir string, log core.Logger) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading rules directory")
	}

	s := &Store{
		byName:      make(map[string]*Muncher),
		byExtension: make(map[string]*Muncher),
		byLanguage:  make(map[string]*Muncher),
	}

	var failures []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		text, err := os.ReadFile(path)
		if err != nil {
			failures = append(failures, entry.Name()+": "+err.Error())
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".json")
		m, err := Load(text, base)
		if err != nil {
			failures = append(failures, entry.Name()+": "+err.Error())
			continue
		}
		s.add(m)
	}

	if len(failures) > 0 && log != nil {
		log.Warnf("%d muncher(s) failed to load: %s", len(failures), strings.Join(failures, "; "))
	}

	if len(s.byName) == 0 {
		return nil, errors.Wrap(core.ErrRulesLoad, "no usable munchers in "+dir)
	}
	return s, nil
}

func (s *Store) add(m *Muncher) {
	s.byName[m.Name()] = m
	s.byExtension[strings.ToLower(m.Name())] = m
	if m.Language() != "" {
		s.byLanguage[strings.ToLower(m.Language())] = m
	}
}

// ByName returns the muncher with the given muncher_name, if loaded.
func (s *Store) ByName(name string) (*Muncher, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Select picks the muncher for path: first by extension against the
// muncher name index, then - if nothing matched - by asking enry for
// its best-guess language from the path alone and looking that language
// up in the index. Returns (nil, false) when no muncher applies; the
// caller routes the path to unprocessed_file_names/unknown_file_types.
func (s *Store) Select(path string) (*Muncher, bool) {
	ext := Extension(path)
	if ext != "" {
		if m, ok := s.byExtension[ext]; ok {
			return m, true
		}
	}
	if lang, ok := enry.GetLanguageByExtension(path); ok {
		if m, ok := s.byLanguage[strings.ToLower(lang)]; ok {
			return m, true
		}
	}
	return nil, false
}

// Extension returns the file extension per §4.F step 3: the substring
// after the final '.' of the basename. Dotfiles (".gitignore") and
// extension-less basenames yield "".
func Extension(path string) string {
	base := filepath.Base(path)
	idx := strings.LastIndex(base, ".")
	if idx <= 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

package pattern

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// setFile is the YAML shape of a per-restaurant pattern file.
type setFile struct {
	Name     string `yaml:"name"`
	Patterns []Spec `yaml:"patterns"`
}

// Library holds all compiled pattern sets plus the universal fallback.
type Library struct {
	sets      map[string]*Set
	universal *Set
}

// NewLibrary builds a library containing only the universal set.
func NewLibrary() *Library {
	return &Library{
		sets:      make(map[string]*Set),
		universal: UniversalSet(),
	}
}

// LoadDir reads every .yaml/.yml pattern file in dir. A malformed file is a
// configuration error and aborts loading — the pipeline must not start with
// a partial pattern library. A missing dir is fine: everything falls back to
// the universal set.
func LoadDir(dir string) (*Library, error) {
	lib := NewLibrary()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("pattern: no patterns dir, using universal set only",
				zap.String("dir", dir),
			)
			return lib, nil
		}
		return nil, eris.Wrapf(err, "pattern: read dir %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "pattern: read %s", path)
		}

		var sf setFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, eris.Wrapf(err, "pattern: parse %s", path)
		}
		if sf.Name == "" {
			sf.Name = strings.TrimSuffix(entry.Name(), ext)
		}

		set, err := CompileSet(sf.Name, sf.Patterns)
		if err != nil {
			return nil, eris.Wrapf(err, "pattern: compile %s", path)
		}
		lib.sets[sf.Name] = set
	}

	zap.L().Info("pattern: library loaded", zap.Int("sets", len(lib.sets)))
	return lib, nil
}

// ForRestaurant returns the named set, or the universal set when the
// restaurant has no dedicated patterns.
func (l *Library) ForRestaurant(patternSet string) *Set {
	if patternSet != "" {
		if set, ok := l.sets[patternSet]; ok {
			return set
		}
		zap.L().Warn("pattern: unknown set, falling back to universal",
			zap.String("set", patternSet),
		)
	}
	return l.universal
}

// Universal exposes the fallback set.
func (l *Library) Universal() *Set {
	return l.universal
}

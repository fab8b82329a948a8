package textmate

import (
	"encoding/json"
	"io/fs"
	"iter"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

// loadedGrammar pairs a decoded grammar with the directory it was read from,
// so that "source.*" includes resolve relative to where the file actually lives.
type loadedGrammar struct {
	json *GrammarJSON
	dir  string
}

type Loader struct {
	filetypes map[string][]*loadedGrammar
	scopes    map[string]*loadedGrammar
}

func loadFile(pathname string) (*GrammarJSON, error) {
	content, err := os.ReadFile(pathname)
	if err != nil {
		return nil, err
	}
	var encoded GrammarJSON
	if strings.HasSuffix(pathname, ".json") {
		err = json.Unmarshal(content, &encoded)
	} else {
		_, err = plist.Unmarshal(content, &encoded)
	}
	return &encoded, err
}

func NewLoader(paths iter.Seq[string]) (*Loader, bool) {
	loader := Loader{
		scopes:    make(map[string]*loadedGrammar),
		filetypes: make(map[string][]*loadedGrammar),
	}

	for pathname := range paths {
		grm, err := loadFile(pathname)
		if err != nil {
			// fmt.Fprintf(os.Stderr, "unable to load %s: %v\n", pathname, err)
			/* logging? */
			continue
		}
		entry := &loadedGrammar{json: grm, dir: path.Dir(pathname)}
		loader.scopes[grm.ScopeName] = entry
		for _, ft := range grm.FileTypes {
			ft = strings.TrimLeft(ft, ".")
			fts := loader.filetypes[ft]
			loader.filetypes[ft] = append(fts, entry)
		}
	}
	return &loader, len(loader.scopes) > 0
}

func NewLoaderFromDir(dir string, walk bool) (*Loader, bool) {
	if walk {
		return NewLoader(func(yield func(string) bool) {
			filepath.WalkDir(dir, func(pathname string, d fs.DirEntry, err error) error {
				if !d.IsDir() {
					if !yield(path.Join(dir, pathname)) {
						return filepath.SkipAll
					}
				}
				return nil
			})
		})
	} else {
		return NewLoader(func(yield func(string) bool) {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					if !yield(path.Join(dir, entry.Name())) {
						return
					}
				}
			}
		})
	}
}

func (l *Loader) FromScope(scope string) (*Grammar, error) {
	grm, ok := l.scopes[scope]
	if !ok {
		return nil, os.ErrNotExist
	}
	return CompileGrammar(*grm.json, grm.dir, "")
}

func (l *Loader) FromFileType(ft string, index int) (*Grammar, error) {
	grms, ok := l.filetypes[ft]
	if !ok || index >= len(grms) {
		return nil, os.ErrNotExist
	}
	return CompileGrammar(*grms[index].json, grms[index].dir, "")
}

func (l *Loader) Scopes() iter.Seq[string] {
	return maps.Keys(l.scopes)
}

func (l *Loader) FileTypes() iter.Seq[string] {
	return maps.Keys(l.filetypes)
}

func (l *Loader) FileTypeNames() iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for ft, grms := range l.filetypes {
			var names []string
			for _, grm := range grms {
				names = append(names, grm.json.ScopeName)
			}
			if !yield(ft, names) {
				return
			}
		}
	}
}

package library

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
)

//go:embed data/*.yaml
var embedded embed.FS

// document mirrors the YAML layout of a library file.
type document struct {
	Name     string                                                  `yaml:"name"`
	Title    string                                                  `yaml:"title"`
	Moods    []content.Mood                                          `yaml:"moods"`
	Contexts []content.Context                                       `yaml:"contexts"`
	Content  map[content.Mood]map[content.Context][]content.Message `yaml:"content"`
}

// Parse decodes a single YAML library document.
func Parse(data []byte) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, fmt.Errorf("library name is required")
	}
	if len(doc.Moods) == 0 {
		return nil, fmt.Errorf("library %s declares no moods", name)
	}
	if len(doc.Contexts) == 0 {
		return nil, fmt.Errorf("library %s declares no contexts", name)
	}
	if dup := firstDuplicate(doc.Moods); dup != "" {
		return nil, fmt.Errorf("library %s declares mood %q twice", name, dup)
	}
	if dup := firstDuplicate(doc.Contexts); dup != "" {
		return nil, fmt.Errorf("library %s declares context %q twice", name, dup)
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = name
	}

	return New(name, title, doc.Moods, doc.Contexts, doc.Content), nil
}

// Load reads and parses one library file from fsys.
func Load(fsys fs.FS, file string) (*Library, error) {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("read library %s: %w", file, err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return lib, nil
}

// LoadDir parses every .yaml/.yml file under dir, sorted by file name.
func LoadDir(fsys fs.FS, dir string) ([]*Library, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list libraries in %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var libs []*Library
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		lib, err := Load(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// LoadEmbedded returns the libraries compiled into the binary.
func LoadEmbedded() ([]*Library, error) {
	return LoadDir(embedded, "data")
}

func firstDuplicate[T ~string](values []T) T {
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}

// Package registry holds the immutable catalog of pages under test.
package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"pom_automation/domain/entities"
)

//go:embed pages.yaml
var defaultTable []byte

type tableFile struct {
	Version int         `yaml:"version"`
	Pages   []tablePage `yaml:"pages"`
}

type tablePage struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Registry maps every page name to its descriptor. It is never mutated
// after construction and is safe for concurrent readers.
type Registry struct {
	version     int
	order       []entities.PageName
	descriptors map[entities.PageName]entities.PageDescriptor
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the embedded table. A table that
// does not cover every page name exactly once is a build defect and panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("registry: embedded page table: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// New parses and validates a page table.
func New(table []byte) (*Registry, error) {
	var file tableFile
	dec := yaml.NewDecoder(bytes.NewReader(table))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse page table: %w", err)
	}
	if file.Version < 1 {
		return nil, fmt.Errorf("page table version must be positive, got %d", file.Version)
	}

	r := &Registry{
		version:     file.Version,
		order:       make([]entities.PageName, 0, len(file.Pages)),
		descriptors: make(map[entities.PageName]entities.PageDescriptor, len(file.Pages)),
	}

	var errs []error
	for i, p := range file.Pages {
		name, err := entities.ParsePageName(p.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		if _, dup := r.descriptors[name]; dup {
			errs = append(errs, fmt.Errorf("entry %d: duplicate page %s", i, name))
			continue
		}
		if strings.TrimSpace(p.Title) == "" {
			errs = append(errs, fmt.Errorf("entry %d (%s): empty title", i, name))
		}
		if strings.TrimSpace(p.URL) == "" {
			errs = append(errs, fmt.Errorf("entry %d (%s): empty url", i, name))
		}
		r.order = append(r.order, name)
		r.descriptors[name] = entities.PageDescriptor{
			Name:        name,
			Title:       p.Title,
			URLTemplate: p.URL,
		}
	}

	for _, name := range entities.PageNames() {
		if _, ok := r.descriptors[name]; !ok {
			errs = append(errs, fmt.Errorf("page %s has no entry", name))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// Resolve returns the descriptor of name. Every valid PageName resolves;
// passing the zero value is a programming error and panics.
func (r *Registry) Resolve(name entities.PageName) entities.PageDescriptor {
	d, ok := r.descriptors[name]
	if !ok {
		panic(fmt.Sprintf("registry: unresolvable page name %s", name))
	}
	return d
}

// Lookup resolves the textual form of a page name.
func (r *Registry) Lookup(s string) (entities.PageDescriptor, error) {
	name, err := entities.ParsePageName(s)
	if err != nil {
		return entities.PageDescriptor{}, err
	}
	return r.Resolve(name), nil
}

// AllNames returns every registered name in table order.
func (r *Registry) AllNames() []entities.PageName {
	names := make([]entities.PageName, len(r.order))
	copy(names, r.order)
	return names
}

// Version is the table version the registry was built from.
func (r *Registry) Version() int {
	return r.version
}

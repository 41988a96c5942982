package migrate

import (
	"fmt"
	"strings"
)

// Meta is the header block of a named migration file:
//
//	-- migration: 003_add_user_avatar
//	-- depends: 002_add_users
//	-- author: orion
type Meta struct {
	Name    string
	Depends []string
	Author  string
	Created string
}

// Header renders the comment block for a migration file.
func (m Meta) Header() string {
	lines := []string{"-- migration: " + m.Name}
	if len(m.Depends) > 0 {
		lines = append(lines, "-- depends: "+strings.Join(m.Depends, ", "))
	}
	if m.Author != "" {
		lines = append(lines, "-- author: "+m.Author)
	}
	if m.Created != "" {
		lines = append(lines, "-- created: "+m.Created)
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// ParseMeta extracts the header block from migration file content. Parsing
// stops at the first non-comment line; a file without `-- migration:` has
// no metadata.
func ParseMeta(content string) (Meta, bool) {
	var meta Meta
	found := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "-- migration:"):
			meta.Name = strings.TrimSpace(strings.TrimPrefix(line, "-- migration:"))
			found = true
		case strings.HasPrefix(line, "-- depends:"):
			for _, dep := range strings.Split(strings.TrimPrefix(line, "-- depends:"), ",") {
				if d := strings.TrimSpace(dep); d != "" {
					meta.Depends = append(meta.Depends, d)
				}
			}
		case strings.HasPrefix(line, "-- author:"):
			meta.Author = strings.TrimSpace(strings.TrimPrefix(line, "-- author:"))
		case strings.HasPrefix(line, "-- created:"):
			meta.Created = strings.TrimSpace(strings.TrimPrefix(line, "-- created:"))
		case line == "" || strings.HasPrefix(line, "--"):
		default:
			// first real content ends the header
			return meta, found
		}
	}
	return meta, found
}

// SortByDependencies validates and topologically orders named migrations.
// A dependency on an unknown migration or a dependency cycle is fatal.
func SortByDependencies(migrations []Meta) ([]Meta, error) {
	known := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		known[m.Name] = true
	}
	for _, m := range migrations {
		for _, dep := range m.Depends {
			if !known[dep] {
				return nil, fmt.Errorf("migration %q depends on %q, which does not exist", m.Name, dep)
			}
		}
	}

	deps := make(map[string][]string, len(migrations))
	for _, m := range migrations {
		deps[m.Name] = m.Depends
	}
	sorted := topologicalSort(migrations, deps, func(m Meta) string { return m.Name })
	if len(sorted) != len(migrations) {
		return nil, fmt.Errorf("migration dependencies contain a cycle")
	}
	return sorted, nil
}

// topologicalSort orders items so dependencies come first, using
// depth-first search with three-colour marking (unvisited, visiting,
// visited) to detect cycles. A cycle yields an empty slice.
func topologicalSort[T any](items []T, dependencies map[string][]string, getID func(T) string) []T {
	var sorted []T
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	itemMap := make(map[string]T)

	for _, item := range items {
		itemMap[getID(item)] = item
	}

	var visit func(string) bool
	visit = func(id string) bool {
		if visiting[id] {
			return false
		}
		if visited[id] {
			return true
		}
		visiting[id] = true
		for _, dep := range dependencies[id] {
			if _, exists := itemMap[dep]; exists {
				if !visit(dep) {
					return false
				}
			}
		}
		visiting[id] = false
		visited[id] = true
		if item, exists := itemMap[id]; exists {
			sorted = append(sorted, item)
		}
		return true
	}

	for _, item := range items {
		if id := getID(item); !visited[id] {
			if !visit(id) {
				return nil
			}
		}
	}
	return sorted
}

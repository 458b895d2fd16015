package vcsguard

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SubmoduleInfo contains information about a git submodule.
type SubmoduleInfo struct {
	Name   string // The submodule name from .gitmodules
	Path   string // The relative path to the submodule
	URL    string // The submodule URL
	Branch string // Branch to track (empty if not specified)
}

// HasSubmodules checks if the repository has any git submodules
// configured, via the presence of a non-empty .gitmodules file.
func (g *Guard) HasSubmodules() bool {
	info, err := os.Stat(filepath.Join(g.repoDir, ".gitmodules"))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// Submodules returns all submodules defined in the repository.
// Returns an empty slice if no submodules exist.
func (g *Guard) Submodules() ([]SubmoduleInfo, error) {
	path := filepath.Join(g.repoDir, ".gitmodules")
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return []SubmoduleInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return parseGitmodules(file)
}

// SubmodulePaths returns just the paths of all submodules.
func (g *Guard) SubmodulePaths() ([]string, error) {
	submodules, err := g.Submodules()
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(submodules))
	for _, sm := range submodules {
		if sm.Path != "" {
			paths = append(paths, sm.Path)
		}
	}
	return paths, nil
}

func parseGitmodules(r io.Reader) ([]SubmoduleInfo, error) {
	var submodules []SubmoduleInfo
	var current *SubmoduleInfo

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[submodule ") {
			if current != nil && current.Path != "" {
				submodules = append(submodules, *current)
			}

			name := strings.TrimPrefix(line, "[submodule ")
			name = strings.TrimSuffix(name, "]")
			name = strings.Trim(name, "\"")

			current = &SubmoduleInfo{Name: name}
			continue
		}

		if current == nil {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "path":
			current.Path = value
		case "url":
			current.URL = value
		case "branch":
			current.Branch = value
		}
	}

	if current != nil && current.Path != "" {
		submodules = append(submodules, *current)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return submodules, nil
}

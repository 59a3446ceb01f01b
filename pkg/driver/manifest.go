// Package driver holds the CLI-facing project manifest. A package.yml names
// the project and its runnable targets; the interpreter core never sees it.
package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest represents the parsed contents of package.yml.
type Manifest struct {
	Path        string
	Name        string
	Version     string
	License     string
	Authors     []string
	Targets     map[string]*TargetSpec
	TargetOrder []string
}

// TargetSpec describes a runnable target from the manifest.
type TargetSpec struct {
	Name         string
	OriginalName string
	Type         TargetType
	Main         string
}

// TargetType enumerates supported target kinds.
type TargetType string

const (
	TargetTypeExecutable TargetType = "executable"
	TargetTypeTest       TargetType = "test"
)

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Name    string                `yaml:"name"`
	Version string                `yaml:"version"`
	License string                `yaml:"license"`
	Authors []string              `yaml:"authors"`
	Targets map[string]targetSpec `yaml:"targets"`
}

type targetSpec struct {
	Type string `yaml:"type"`
	Main string `yaml:"main"`
}

// LoadManifest parses package.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (raw manifestFile) toManifest(path string) *Manifest {
	m := &Manifest{
		Path:    path,
		Name:    strings.TrimSpace(raw.Name),
		Version: strings.TrimSpace(raw.Version),
		License: strings.TrimSpace(raw.License),
		Authors: raw.Authors,
		Targets: make(map[string]*TargetSpec, len(raw.Targets)),
	}
	names := make([]string, 0, len(raw.Targets))
	for name := range raw.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := raw.Targets[name]
		targetType := TargetType(strings.TrimSpace(spec.Type))
		if targetType == "" {
			targetType = TargetTypeExecutable
		}
		sanitized := SanitizeName(name)
		m.Targets[sanitized] = &TargetSpec{
			Name:         sanitized,
			OriginalName: name,
			Type:         targetType,
			Main:         strings.TrimSpace(spec.Main),
		}
		m.TargetOrder = append(m.TargetOrder, sanitized)
	}
	return m
}

func (m *Manifest) validate() error {
	var issues []string
	if m.Name == "" {
		issues = append(issues, "name is required")
	}
	for _, name := range m.TargetOrder {
		target := m.Targets[name]
		if target.Main == "" {
			issues = append(issues, fmt.Sprintf("target %q missing main entrypoint", target.OriginalName))
		}
		switch target.Type {
		case TargetTypeExecutable, TargetTypeTest:
		default:
			issues = append(issues, fmt.Sprintf("target %q has unsupported type %q", target.OriginalName, target.Type))
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// FindTarget looks up a target by name, tolerating case and separator
// differences.
func (m *Manifest) FindTarget(name string) (*TargetSpec, bool) {
	target, ok := m.Targets[SanitizeName(name)]
	return target, ok
}

// DefaultTarget picks the target to run when none is named: a target called
// "main" if present, otherwise the sole executable target.
func (m *Manifest) DefaultTarget() (*TargetSpec, error) {
	if target, ok := m.Targets["main"]; ok {
		return target, nil
	}
	var executables []*TargetSpec
	for _, name := range m.TargetOrder {
		if m.Targets[name].Type == TargetTypeExecutable {
			executables = append(executables, m.Targets[name])
		}
	}
	switch len(executables) {
	case 0:
		return nil, fmt.Errorf("manifest %s defines no executable targets", m.Path)
	case 1:
		return executables[0], nil
	default:
		return nil, fmt.Errorf("manifest %s defines multiple executable targets; name one explicitly", m.Path)
	}
}

// SanitizeName normalizes a target name for lookup.
func SanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "-", "_")
}

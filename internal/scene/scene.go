// Package scene loads declarative scene files and builds entity trees from
// them. A scene names a root and a nested list of nodes; each node lists the
// lifecycle hooks it takes part in.
//
//	name = "demo"
//
//	[context]
//	mode = "sandbox"
//
//	[[nodes]]
//	name  = "ship"
//	hooks = ["setup", "update", "teardown"]
//
//	  [[nodes.children]]
//	  name  = "engine"
//	  hooks = ["update"]
//
// The same structure is accepted as YAML.
package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Scene errors.
var (
	ErrUnknownFormat = errors.New("scene: unknown format")
	ErrUnknownHook   = errors.New("scene: unknown hook")
	ErrEmptyScene    = errors.New("scene: no nodes")
	ErrInvalidNode   = errors.New("scene: invalid node")
)

// Format is a scene file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Hook names accepted in scene files.
const (
	HookSetup    = "setup"
	HookUpdate   = "update"
	HookTeardown = "teardown"
)

// DefaultName is used when a scene file does not name its root.
const DefaultName = "root"

// File is a parsed scene file.
type File struct {
	Name    string            `toml:"name" yaml:"name"`
	Context map[string]string `toml:"context" yaml:"context"`
	Nodes   []Node            `toml:"nodes" yaml:"nodes"`
}

// Node describes one entity and its subtree.
type Node struct {
	Name  string   `toml:"name" yaml:"name"`
	Hooks []string `toml:"hooks" yaml:"hooks"`
	// Fail names a hook that returns an error instead of succeeding.
	Fail     string `toml:"fail" yaml:"fail"`
	Children []Node `toml:"children" yaml:"children"`
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads, parses and validates the scene file at path.
func Load(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes and validates scene data.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse scene: %w", err)
		}
	case FormatYAML:
		if len(bytes.TrimSpace(data)) > 0 {
			if err := yaml.Unmarshal(data, &f); err != nil {
				return nil, fmt.Errorf("parse scene: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if f.Name == "" {
		f.Name = DefaultName
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks node names and hook lists.
func (f *File) Validate() error {
	if len(f.Nodes) == 0 {
		return ErrEmptyScene
	}
	return validateNodes(f.Name, f.Nodes)
}

func validateNodes(parent string, nodes []Node) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			return fmt.Errorf("%w: unnamed node under %s", ErrInvalidNode, parent)
		}
		if strings.Contains(n.Name, "/") {
			return fmt.Errorf("%w: name %q contains '/'", ErrInvalidNode, n.Name)
		}
		path := parent + "/" + n.Name
		if seen[n.Name] {
			return fmt.Errorf("%w: duplicate node %s", ErrInvalidNode, path)
		}
		seen[n.Name] = true

		for _, h := range n.Hooks {
			if !validHook(h) {
				return fmt.Errorf("%w: %q on %s", ErrUnknownHook, h, path)
			}
		}
		if n.Fail != "" {
			if !validHook(n.Fail) {
				return fmt.Errorf("%w: fail %q on %s", ErrUnknownHook, n.Fail, path)
			}
			if !n.HasHook(n.Fail) {
				return fmt.Errorf("%w: %s fails %s without declaring it", ErrInvalidNode, path, n.Fail)
			}
		}
		if err := validateNodes(path, n.Children); err != nil {
			return err
		}
	}
	return nil
}

// HasHook reports whether the node declares hook.
func (n Node) HasHook(hook string) bool {
	for _, h := range n.Hooks {
		if h == hook {
			return true
		}
	}
	return false
}

func validHook(h string) bool {
	return h == HookSetup || h == HookUpdate || h == HookTeardown
}

// Package camconfig reads the per-camera mask and zone settings out of the
// YAML configuration document.
package camconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrCameraNotFound is returned when cameras.<name> is absent.
	ErrCameraNotFound = errors.New("camera not found in config")
	// ErrMissingDetectSize is returned when detect.width/height are not positive.
	ErrMissingDetectSize = errors.New("camera detect width/height missing")
)

// Zone is a named region with its raw polyline text.
type Zone struct {
	Name        string
	Coordinates string
}

// ObjectMask holds the raw mask polylines configured for one object label.
type ObjectMask struct {
	Name  string
	Masks []string
}

// Camera is the subset of one camera's configuration the editor works on.
// Zones and ObjectMasks keep the order in which they appear in the document.
type Camera struct {
	Name        string
	Width       int
	Height      int
	MotionMasks []string
	Zones       []Zone
	ObjectMasks []ObjectMask
}

// Load reads path and extracts the named camera.
func Load(path, camera string) (*Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, camera)
}

// Parse extracts the named camera from a YAML document.
func Parse(data []byte, camera string) (*Camera, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	camNode := lookup(lookup(root, "cameras"), camera)
	if camNode == nil {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, camera)
	}

	cam := &Camera{Name: camera}

	var detect struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	}
	if node := lookup(camNode, "detect"); node != nil {
		if err := node.Decode(&detect); err != nil {
			return nil, fmt.Errorf("camera %s detect: %w", camera, err)
		}
	}
	if detect.Width <= 0 || detect.Height <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDetectSize, camera)
	}
	cam.Width, cam.Height = detect.Width, detect.Height

	masks, err := stringList(lookup(lookup(camNode, "motion"), "mask"))
	if err != nil {
		return nil, fmt.Errorf("camera %s motion mask: %w", camera, err)
	}
	cam.MotionMasks = masks

	err = eachPair(lookup(camNode, "zones"), func(name string, value *yaml.Node) error {
		coords, err := stringList(lookup(value, "coordinates"))
		if err != nil {
			return fmt.Errorf("zone %s: %w", name, err)
		}
		cam.Zones = append(cam.Zones, Zone{Name: name, Coordinates: strings.Join(coords, ",")})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", camera, err)
	}

	err = eachPair(lookup(lookup(camNode, "objects"), "filters"), func(name string, value *yaml.Node) error {
		masks, err := stringList(lookup(value, "mask"))
		if err != nil {
			return fmt.Errorf("object filter %s: %w", name, err)
		}
		cam.ObjectMasks = append(cam.ObjectMasks, ObjectMask{Name: name, Masks: masks})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("camera %s: %w", camera, err)
	}

	return cam, nil
}

// lookup returns the value node stored under key in a mapping node.
func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// eachPair walks a mapping node in document order.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// stringList accepts either a single scalar or a sequence of scalars.
func stringList(node *yaml.Node) ([]string, error) {
	if node == nil {
		return nil, nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list at line %d", node.Line)
	}
}

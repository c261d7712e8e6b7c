package rig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rigbench/pkg/math"
)

// placementFile is the YAML document for saved marker placements.
type placementFile struct {
	Markers map[string][3]float32 `yaml:"markers"`
}

// SavePlacements writes the editor's placed markers to a YAML file so a
// placement session can be resumed or replayed by rigtool.
func SavePlacements(path string, e *Editor) error {
	doc := placementFile{Markers: make(map[string][3]float32)}
	for _, m := range e.Markers() {
		if !m.Placed {
			continue
		}
		doc.Markers[string(m.Name)] = [3]float32{m.Position.X, m.Position.Y, m.Position.Z}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadPlacements reads a placement YAML file into marker positions.
// Unknown marker names are rejected rather than silently dropped.
func LoadPlacements(path string) (map[MarkerName]math.Vec3, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc placementFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing placements %s: %w", path, err)
	}

	out := make(map[MarkerName]math.Vec3, len(doc.Markers))
	for name, p := range doc.Markers {
		mn := MarkerName(name)
		if mn.Index() < 0 {
			return nil, fmt.Errorf("placements %s: unknown marker %q", path, name)
		}
		out[mn] = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}
	return out, nil
}

// ApplyPlacements places every marker from the loaded map onto the editor.
func ApplyPlacements(e *Editor, positions map[MarkerName]math.Vec3) {
	for _, name := range AllMarkers {
		if pos, ok := positions[name]; ok {
			e.SetPosition(name, pos)
		}
	}
}

package watcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"video-insights-go/internal/dataset"
	"video-insights-go/internal/types"
)

// batchFile is the object form of a batch; a bare list of items is accepted too.
type batchFile struct {
	Items []types.SelectedItem `json:"items" yaml:"items"`
}

// IsBatchFile reports whether path has a supported batch extension and is
// not one of our own outputs.
func IsBatchFile(path string) bool {
	if strings.HasSuffix(strings.ToLower(path), ".report.json") {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".xlsx":
		return true
	default:
		return false
	}
}

// LoadBatch reads the items of a batch file.
func LoadBatch(path string) ([]types.SelectedItem, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		return dataset.Load(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var items []types.SelectedItem
	switch ext {
	case ".json":
		items, err = decodeJSON(data)
	case ".yaml", ".yml":
		items, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported batch file: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batch file %s has no items", filepath.Base(path))
	}
	return items, nil
}

func decodeJSON(data []byte) ([]types.SelectedItem, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []types.SelectedItem
		err := json.Unmarshal(data, &items)
		return items, err
	}
	var bf batchFile
	err := json.Unmarshal(data, &bf)
	return bf.Items, err
}

func decodeYAML(data []byte) ([]types.SelectedItem, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var items []types.SelectedItem
		err := node.Decode(&items)
		return items, err
	}
	var bf batchFile
	err := node.Decode(&bf)
	return bf.Items, err
}

// OutputPath is where the transcript for a batch file is written.
func OutputPath(batchPath string) string {
	base := strings.TrimSuffix(batchPath, filepath.Ext(batchPath))
	return base + ".transcript.md"
}

// ReportPath is where the JSON run report for a batch file is written.
func ReportPath(batchPath string) string {
	base := strings.TrimSuffix(batchPath, filepath.Ext(batchPath))
	return base + ".report.json"
}

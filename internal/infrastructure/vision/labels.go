package vision

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadLabels читает словарь классов модели.
// Поддерживается data.yaml в формате Ultralytics (names: список или {индекс: имя})
// и обычный текстовый файл, одно имя на строку.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	var labels []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		labels, err = parseYAMLLabels(data)
	default:
		labels, err = parseTextLabels(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse labels %s: %w", filepath.Base(path), err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("parse labels %s: no class names", filepath.Base(path))
	}
	return labels, nil
}

func parseTextLabels(data []byte) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	return labels, sc.Err()
}

func parseYAMLLabels(data []byte) ([]string, error) {
	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, err
		}
		return names, nil
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := doc.Names.Decode(&byIndex); err != nil {
			return nil, err
		}
		indices := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		names := make([]string, len(indices))
		for pos, i := range indices {
			if i != pos {
				return nil, fmt.Errorf("class indices must be contiguous from 0, missing %d", pos)
			}
			names[pos] = byIndex[i]
		}
		return names, nil
	case 0:
		return nil, errors.New("names key is missing")
	default:
		return nil, errors.New("names must be a list or a mapping")
	}
}

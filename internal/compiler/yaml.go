package compiler

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlFile is the top level of a YAML quest file.
type yamlFile struct {
	Quests []QuestDef `yaml:"quests"`
}

// ParseYAML decodes a YAML quest file. Unknown keys are rejected.
func ParseYAML(data []byte) ([]QuestDef, error) {
	var file yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &CompileError{Field: "quests", Message: "file is empty"}
		}
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}

	lines := questLines(data)
	for i := range file.Quests {
		if i < len(lines) {
			file.Quests[i].Line = lines[i]
		}
	}
	return file.Quests, nil
}

// questLines returns the source line of each item of the top-level quests
// sequence.
func questLines(data []byte) []int {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "quests" {
			continue
		}
		seq := doc.Content[i+1]
		lines := make([]int, len(seq.Content))
		for j, item := range seq.Content {
			lines[j] = item.Line
		}
		return lines
	}
	return nil
}

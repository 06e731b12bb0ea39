package dictsource

import (
	"errors"
	"fmt"
	"io"

	"github.com/endorses/lexfst/internal/pkg/fst"
	"gopkg.in/yaml.v3"
)

// yamlEntry is one element of the sequence form.
type yamlEntry struct {
	Key     string   `yaml:"key"`
	Output  *string  `yaml:"output,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
}

// ReadYAML reads a YAML dictionary in one of two shapes. A sequence of
// entries:
//
//	- key: feb
//	  outputs: ["28", "29"]
//	- key: jan
//	  output: "31"
//
// or a mapping from key to an output or a list of outputs:
//
//	feb: ["28", "29"]
//	jan: "31"
//
// A key without outputs gets one empty output. Document order is kept.
func ReadYAML(r io.Reader) ([]fst.Pair, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		return readYAMLSequence(root)
	case yaml.MappingNode:
		return readYAMLMapping(root)
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: line %d: expected a sequence or a mapping", ErrInvalidFormat, root.Line)
}

func readYAMLSequence(root *yaml.Node) ([]fst.Pair, error) {
	var pairs []fst.Pair
	for _, item := range root.Content {
		var e yamlEntry
		if err := item.Decode(&e); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidFormat, item.Line, err)
		}
		outputs := e.Outputs
		if e.Output != nil {
			outputs = append([]string{*e.Output}, outputs...)
		}
		pairs = appendPairs(pairs, e.Key, outputs)
	}
	return pairs, nil
}

func readYAMLMapping(root *yaml.Node) ([]fst.Pair, error) {
	var pairs []fst.Pair
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: key must be a scalar", ErrInvalidFormat, k.Line)
		}

		var outputs []string
		switch v.Kind {
		case yaml.ScalarNode:
			if v.Tag != "!!null" {
				outputs = []string{v.Value}
			}
		case yaml.SequenceNode:
			if err := v.Decode(&outputs); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidFormat, v.Line, err)
			}
		default:
			return nil, fmt.Errorf("%w: line %d: value of %q must be a scalar or a list", ErrInvalidFormat, v.Line, k.Value)
		}
		pairs = appendPairs(pairs, k.Value, outputs)
	}
	return pairs, nil
}

func appendPairs(pairs []fst.Pair, key string, outputs []string) []fst.Pair {
	if len(outputs) == 0 {
		return append(pairs, fst.Pair{Key: []byte(key), Output: []byte{}})
	}
	for _, o := range outputs {
		pairs = append(pairs, fst.Pair{Key: []byte(key), Output: []byte(o)})
	}
	return pairs
}

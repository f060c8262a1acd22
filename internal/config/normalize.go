package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// maxAliasExpansions bounds the nodes reached through aliases in one document.
const maxAliasExpansions = 10000

type normalizer struct {
	expanding  map[*yaml.Node]bool
	expansions int
}

// normalizeNode converts a YAML node tree into the plain shape FromMap
// expects: map[string]any for mappings, []any for sequences, and string,
// bool, int, float64 or nil for scalars.
func normalizeNode(node *yaml.Node) (any, error) {
	n := &normalizer{expanding: make(map[*yaml.Node]bool)}
	return n.node(node)
}

func (n *normalizer) node(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return n.node(node.Content[0])
	case yaml.AliasNode:
		return n.alias(node)
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
				return nil, fmt.Errorf("line %d: merge keys are not supported", keyNode.Line)
			}
			if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() != "!!str" {
				return nil, fmt.Errorf("line %d: mapping keys must be strings", keyNode.Line)
			}
			if _, dup := out[keyNode.Value]; dup {
				return nil, fmt.Errorf("line %d: duplicate key %q", keyNode.Line, keyNode.Value)
			}
			value, err := n.node(valueNode)
			if err != nil {
				return nil, err
			}
			out[keyNode.Value] = value
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := n.node(item)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	case yaml.ScalarNode:
		return normalizeScalar(node)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func (n *normalizer) alias(node *yaml.Node) (any, error) {
	target := node.Alias
	if target == nil {
		return nil, fmt.Errorf("line %d: unknown anchor %q", node.Line, node.Value)
	}
	if n.expanding[target] {
		return nil, fmt.Errorf("line %d: anchor %q references itself", node.Line, node.Value)
	}
	n.expansions += countNodes(target)
	if n.expansions > maxAliasExpansions {
		return nil, fmt.Errorf("line %d: document expands too many aliases", node.Line)
	}

	n.expanding[target] = true
	defer delete(n.expanding, target)
	return n.node(target)
}

// countNodes reports the size of the tree under node, counting aliases as
// single nodes.
func countNodes(node *yaml.Node) int {
	total := 1
	for _, child := range node.Content {
		total += countNodes(child)
	}
	return total
}

func normalizeScalar(node *yaml.Node) (any, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!str":
		return node.Value, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return b, nil
	case "!!int":
		var n int
		if err := node.Decode(&n); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return n, nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return f, nil
	default:
		// Timestamps, binary and custom tags keep their source text.
		return node.Value, nil
	}
}

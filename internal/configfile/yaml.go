package configfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	mergeTag = "!!merge"
	nullTag  = "!!null"

	// maxDepth bounds nesting so that cyclic aliases terminate.
	maxDepth = 256

	// A document may expand through aliases and merge keys to at most
	// expansionFactor times its own node count plus minExpansionBudget.
	expansionFactor    = 10
	minExpansionBudget = 10000
)

var errExcessiveAliasing = errors.New("yaml document contains excessive aliasing")

type mappingEntry struct {
	key   string
	value *yaml.Node
}

type flattener struct {
	values map[string]string
	budget int
}

func decodeYAML(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		f := &flattener{
			values: values,
			budget: expansionFactor*countNodes(&doc) + minExpansionBudget,
		}
		for _, root := range doc.Content {
			if isNull(root) {
				continue
			}
			if err := f.flatten("", root, 0); err != nil {
				return nil, err
			}
		}
	}
	return values, nil
}

func (f *flattener) visit(key string) error {
	f.budget--
	if f.budget < 0 {
		return fmt.Errorf("%w near %q", errExcessiveAliasing, key)
	}
	return nil
}

func (f *flattener) flatten(key string, node *yaml.Node, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("yaml nesting deeper than %d at %q", maxDepth, key)
	}
	if err := f.visit(key); err != nil {
		return err
	}

	switch node.Kind {
	case yaml.AliasNode:
		return f.flatten(key, node.Alias, depth+1)
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := f.flatten(key, child, depth+1); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		entries, err := f.mappingEntries(node, depth)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := f.flatten(childKey(key, entry.key), entry.value, depth+1); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			if err := f.flatten(key+"["+strconv.Itoa(i)+"]", child, depth+1); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if isNull(node) {
			f.values[key] = ""
			return nil
		}
		f.values[key] = node.Value
	default:
		return fmt.Errorf("unexpected yaml node kind %d at %q", node.Kind, key)
	}
	return nil
}

// mappingEntries resolves the effective entries of a mapping before it is
// flattened. Merge keys (<<) are shallow: an explicit key replaces a merged
// value whole, and an earlier merge source wins over a later one. Among
// repeated explicit keys the last one wins.
func (f *flattener) mappingEntries(node *yaml.Node, depth int) ([]mappingEntry, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("yaml merge nesting deeper than %d at line %d", maxDepth, node.Line)
	}

	var (
		explicit []mappingEntry
		merged   []mappingEntry
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := resolveAlias(node.Content[i]), node.Content[i+1]
		if err := f.visit(k.Value); err != nil {
			return nil, err
		}
		if k.ShortTag() != mergeTag {
			explicit = append(explicit, mappingEntry{key: k.Value, value: v})
			continue
		}

		sources := []*yaml.Node{v}
		if resolved := resolveAlias(v); resolved.Kind == yaml.SequenceNode {
			sources = resolved.Content
		}
		for _, source := range sources {
			source = resolveAlias(source)
			if source.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("merge value at line %d is not a mapping", source.Line)
			}
			entries, err := f.mappingEntries(source, depth+1)
			if err != nil {
				return nil, err
			}
			merged = append(merged, entries...)
		}
	}

	index := make(map[string]int, len(explicit)+len(merged))
	entries := make([]mappingEntry, 0, len(explicit)+len(merged))
	for _, entry := range explicit {
		if i, ok := index[entry.key]; ok {
			entries[i] = entry
			continue
		}
		index[entry.key] = len(entries)
		entries = append(entries, entry)
	}
	for _, entry := range merged {
		if _, ok := index[entry.key]; ok {
			continue
		}
		index[entry.key] = len(entries)
		entries = append(entries, entry)
	}
	return entries, nil
}

// countNodes counts the nodes of a parsed tree without following aliases.
func countNodes(node *yaml.Node) int {
	n := 1
	for _, child := range node.Content {
		n += countNodes(child)
	}
	return n
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func childKey(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == nullTag
}

package xand

import (
	"encoding/json"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// A graph description is a JSON list of node descriptors, ordered so that a
// reader can follow the dataflow:
//
//	[
//	  {"name": "zeros_1",
//	   "kind": {"kind": "DATA", "type": "CONSTANT", "value": [0, 0, 0, 0]}},
//	  {"name": "add_2",
//	   "kind": {"kind": "OP", "name": "add", "type": "BINARY"},
//	   "inputs": ["input_0", "zeros_1"]}
//	]
//
// Input nodes are not part of the description: they are synthesized from the
// values the caller supplies, matched by name.

type nodeConfig struct {
	Name   string     `json:"name"`
	Kind   kindConfig `json:"kind"`
	Inputs []string   `json:"inputs"`
}

type kindConfig struct {
	Kind string `json:"kind"` // "OP" or "DATA"

	// OP fields.
	Name string         `json:"name,omitempty"`
	Args map[string]any `json:"args,omitempty"`

	// Type is the operation category for OP nodes, the data role tag for
	// DATA nodes.
	Type string `json:"type,omitempty"`

	// DATA field: a number or nested arrays of numbers.
	Value json.RawMessage `json:"value,omitempty"`
}

// ReadGraphFile reads a JSON graph description file and builds the graph,
// binding the given named input values.
func ReadGraphFile(filePath string, inputs map[string]*tensors.Tensor) (*Graph, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read graph description in %s", filePath)
	}
	return LoadGraph(contents, inputs)
}

// LoadGraph builds a Graph from a JSON graph description.
//
// The caller supplies the input values by name; an input node is synthesized
// for each (ordered by numeric name suffix, then name, so "input_0",
// "input_1", ... keep their natural order). Descriptors whose name matches a
// supplied input are skipped. After connecting edges every sink node (one
// with no consumers) is designated an output, in description order.
func LoadGraph(contents []byte, inputs map[string]*tensors.Tensor) (*Graph, error) {
	var configs []nodeConfig
	if err := json.Unmarshal(contents, &configs); err != nil {
		return nil, errors.Wrapf(ErrConfig, "parsing graph description: %v", err)
	}

	g := NewGraph()
	nodesByName := make(map[string]*Node, len(configs)+len(inputs))

	inputNames := make([]string, 0, len(inputs))
	for name := range inputs {
		inputNames = append(inputNames, name)
	}
	slices.SortFunc(inputNames, func(a, b string) int {
		if c := nodeID(a) - nodeID(b); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	for _, name := range inputNames {
		node := NewDataNode(name, NewData(InputData, inputs[name]))
		nodesByName[name] = node
		g.AddNode(node)
		g.InputNodes = append(g.InputNodes, node)
	}

	// First pass: create the described nodes. A descriptor whose name matches
	// a supplied input is skipped; duplicates among the descriptors themselves
	// are an error.
	described := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		if described[cfg.Name] {
			return nil, errors.Wrapf(ErrConstruction, "duplicate node name %q", cfg.Name)
		}
		described[cfg.Name] = true
		if _, found := nodesByName[cfg.Name]; found {
			continue
		}
		node, err := buildNode(cfg)
		if err != nil {
			return nil, errors.WithMessagef(err, "node %q", cfg.Name)
		}
		nodesByName[cfg.Name] = node
		g.AddNode(node)
	}

	// Second pass: connect edges.
	for _, cfg := range configs {
		node := nodesByName[cfg.Name]
		for _, inputName := range cfg.Inputs {
			input, found := nodesByName[inputName]
			if !found {
				return nil, errors.Wrapf(ErrConstruction, "input node %q not found for node %q",
					inputName, cfg.Name)
			}
			g.Connect(input, node)
		}
	}

	// Every declared input must carry a value before shape inference runs.
	for _, input := range g.InputNodes {
		if input.Data == nil || input.Data.Value == nil {
			return nil, errors.Wrapf(ErrConstruction, "input node %q has no value", input.Name)
		}
	}

	// The description does not name outputs: the sinks are the outputs.
	for _, n := range g.Nodes {
		if len(n.Outputs) == 0 {
			g.OutputNodes = append(g.OutputNodes, n)
		}
	}
	return g, nil
}

// buildNode resolves one node descriptor into a Node.
func buildNode(cfg nodeConfig) (*Node, error) {
	switch cfg.Kind.Kind {
	case "OP":
		op, err := NewOperation(cfg.Kind.Name, cfg.Kind.Args)
		if err != nil {
			return nil, err
		}
		return NewOpNode(cfg.Name, op), nil
	case "DATA":
		dataType, err := ParseDataType(cfg.Kind.Type)
		if err != nil {
			return nil, err
		}
		if len(cfg.Kind.Value) == 0 {
			return nil, errors.Wrap(ErrConfig, "data node must have a value")
		}
		value, err := parseLiteral(cfg.Kind.Value)
		if err != nil {
			return nil, err
		}
		return NewDataNode(cfg.Name, NewData(dataType, value)), nil
	}
	return nil, errors.Wrapf(ErrConfig, "unknown kind %q", cfg.Kind.Kind)
}

// parseLiteral converts a JSON literal (a number, or arbitrarily nested
// arrays of numbers) into a float32 tensor. The nesting depth gives the
// rank; rows must be rectangular.
func parseLiteral(raw json.RawMessage) (*tensors.Tensor, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.Wrapf(ErrConfig, "parsing literal value: %v", err)
	}
	dims, err := literalDims(value)
	if err != nil {
		return nil, err
	}
	size := 1
	for _, dim := range dims {
		size *= dim
	}
	flat := make([]float32, 0, size)
	if err := flattenLiteral(value, dims, &flat); err != nil {
		return nil, err
	}
	return tensors.FromFlatDataAndDimensions(flat, dims...), nil
}

// literalDims derives the dimensions of a nested JSON literal from its first
// elements.
func literalDims(value any) ([]int, error) {
	dims := []int{}
	for {
		list, ok := value.([]any)
		if !ok {
			break
		}
		dims = append(dims, len(list))
		if len(list) == 0 {
			return nil, errors.Wrap(ErrConfig, "literal value has an empty dimension")
		}
		value = list[0]
	}
	if _, ok := value.(float64); !ok {
		return nil, errors.Wrapf(ErrConfig, "literal value must hold numbers, got %T", value)
	}
	return dims, nil
}

// flattenLiteral appends the literal's elements to flat in row-major order,
// checking that every row matches the derived dimensions.
func flattenLiteral(value any, dims []int, flat *[]float32) error {
	if len(dims) == 0 {
		num, ok := value.(float64)
		if !ok {
			return errors.Wrapf(ErrConfig, "literal value must hold numbers, got %T", value)
		}
		*flat = append(*flat, float32(num))
		return nil
	}
	list, ok := value.([]any)
	if !ok || len(list) != dims[0] {
		return errors.Wrap(ErrConfig, "literal value is ragged")
	}
	for _, element := range list {
		if err := flattenLiteral(element, dims[1:], flat); err != nil {
			return err
		}
	}
	return nil
}

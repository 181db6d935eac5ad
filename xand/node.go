package xand

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// DataType tags the role a Data node plays in the graph.
type DataType int

const (
	ConstantData DataType = iota
	VariableData
	ParameterData
	InputData
)

// String implements fmt.Stringer.
func (dt DataType) String() string {
	switch dt {
	case ConstantData:
		return "CONSTANT"
	case VariableData:
		return "VARIABLE"
	case ParameterData:
		return "PARAMETER"
	case InputData:
		return "INPUT"
	}
	return "INVALID"
}

// ParseDataType converts the textual tag used in graph descriptions.
func ParseDataType(tag string) (DataType, error) {
	switch tag {
	case "CONSTANT":
		return ConstantData, nil
	case "VARIABLE":
		return VariableData, nil
	case "PARAMETER":
		return ParameterData, nil
	case "INPUT":
		return InputData, nil
	}
	return 0, errors.Wrapf(ErrConfig, "unknown data type tag %q", tag)
}

// OpKind is the category tag of an operation variant.
type OpKind int

const (
	UnaryOp OpKind = iota
	BinaryOp
	TensorManipulationOp
)

// String implements fmt.Stringer.
func (k OpKind) String() string {
	switch k {
	case UnaryOp:
		return "UNARY"
	case BinaryOp:
		return "BINARY"
	case TensorManipulationOp:
		return "TENSOR_MANIPULATION"
	}
	return "INVALID"
}

// Operation is the capability set every operation variant implements: execute
// on concrete tensors and infer the output shape from input shapes.
//
// The set of variants is closed -- see ops.go. Forward delegates the actual
// math to the kernels layer; the graph IR never computes on tensor data
// itself.
type Operation interface {
	// OpName returns the registered operation name, e.g. "matmul".
	OpName() string

	// Kind returns the operation category tag.
	Kind() OpKind

	// Forward executes the operation on the given input tensors.
	Forward(inputs []*tensors.Tensor) (*tensors.Tensor, error)

	// InferShape computes the output shape from the input shapes without
	// touching tensor data.
	InferShape(inputShapes [][]int) ([]int, error)
}

// Data is the payload of a value-holding node: a concrete tensor plus its
// role tag. Its shape is derived once from the tensor and stays fixed for the
// node's lifetime: input values may be replaced between evaluation calls, but
// only with tensors of the same shape.
type Data struct {
	Type  DataType
	Value *tensors.Tensor

	shape []int
}

// NewData creates a Data payload, deriving its fixed shape from value.
func NewData(dataType DataType, value *tensors.Tensor) *Data {
	d := &Data{Type: dataType, Value: value}
	if value != nil {
		d.shape = slices.Clone(value.Shape().Dimensions)
		if d.shape == nil {
			d.shape = []int{} // scalar
		}
	}
	return d
}

// Node is a vertex of the computation graph. Exactly one of Data or Op is
// set. Inputs and Outputs are the two sides of the graph's bidirectional
// edges: b appears in a.Outputs if and only if a appears in b.Inputs, an
// invariant maintained by Graph.Connect and Graph.disconnect alone.
type Node struct {
	Name string

	// ID is the numeric suffix of Name ("matmul_9" -> 9), or -1 when the
	// name carries none. It is used to derive fresh, traceable names during
	// rewrites.
	ID int

	Data *Data
	Op   Operation

	Inputs  []*Node
	Outputs []*Node

	// Memoized results; nil until computed. Computed shapes are always
	// non-nil, an empty slice meaning scalar.
	tensor *tensors.Tensor
	shape  []int
}

// NewDataNode creates a value-holding node.
func NewDataNode(name string, data *Data) *Node {
	return &Node{Name: name, ID: nodeID(name), Data: data}
}

// NewOpNode creates an operation node.
func NewOpNode(name string, op Operation) *Node {
	return &Node{Name: name, ID: nodeID(name), Op: op}
}

func nodeID(name string) int {
	if idx := strings.LastIndexByte(name, '_'); idx >= 0 {
		if id, err := strconv.Atoi(name[idx+1:]); err == nil {
			return id
		}
	}
	return -1
}

// BaseName returns the node name with its trailing numeric id stripped:
// "matmul_9" -> "matmul", "add_const_3" -> "add_const". Names without a
// numeric suffix are returned unchanged.
func (n *Node) BaseName() string {
	if idx := strings.LastIndexByte(n.Name, '_'); idx >= 0 {
		if _, err := strconv.Atoi(n.Name[idx+1:]); err == nil {
			return n.Name[:idx]
		}
	}
	return n.Name
}

// Tensor returns the node's output tensor, computing and memoizing it on
// first use. Operation nodes force all of their inputs first, so dependency
// ordering is guaranteed by the recursion, not by any traversal order.
func (n *Node) Tensor() (*tensors.Tensor, error) {
	if n.tensor != nil {
		return n.tensor, nil
	}
	switch {
	case n.Data != nil:
		if n.Data.Value == nil {
			return nil, errors.Wrapf(ErrEvaluation, "data node %q has no value", n.Name)
		}
		n.tensor = n.Data.Value
	case n.Op != nil:
		inputs := make([]*tensors.Tensor, len(n.Inputs))
		for ii, input := range n.Inputs {
			t, err := input.Tensor()
			if err != nil {
				return nil, err
			}
			inputs[ii] = t
		}
		out, err := n.Op.Forward(inputs)
		if err != nil {
			return nil, errors.Wrapf(ErrEvaluation, "computing node %q: %v", n.Name, err)
		}
		n.tensor = out
	default:
		return nil, errors.Wrapf(ErrConstruction, "node %q has neither data nor operation kind", n.Name)
	}
	return n.tensor, nil
}

// Shape returns the node's output shape, computing and memoizing it on first
// use. Operation nodes force all of their inputs' shapes first.
func (n *Node) Shape() ([]int, error) {
	if n.shape != nil {
		return n.shape, nil
	}
	switch {
	case n.Data != nil:
		if n.Data.shape == nil {
			return nil, errors.Wrapf(ErrShape, "data node %q has no shape information", n.Name)
		}
		n.shape = n.Data.shape
	case n.Op != nil:
		inputShapes := make([][]int, len(n.Inputs))
		for ii, input := range n.Inputs {
			shape, err := input.Shape()
			if err != nil {
				return nil, err
			}
			inputShapes[ii] = shape
		}
		shape, err := n.Op.InferShape(inputShapes)
		if err != nil {
			return nil, errors.WithMessagef(err, "inferring shape of node %q", n.Name)
		}
		n.shape = shape
	default:
		return nil, errors.Wrapf(ErrConstruction, "node %q has neither data nor operation kind", n.Name)
	}
	return n.shape, nil
}

func (n *Node) clearTensor() { n.tensor = nil }

func (n *Node) clearShape() { n.shape = nil }

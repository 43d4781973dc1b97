package value

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML implements yaml.Unmarshaler by walking the document's
// *yaml.Node tree directly, preserving mapping key order the same way
// UnmarshalJSON preserves object key order.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func decodeYAMLNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null, nil
		}
		return decodeYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	case yaml.ScalarNode:
		return decodeYAMLScalar(node)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, c := range node.Content {
			item, err := decodeYAMLNode(c)
			if err != nil {
				return Null, err
			}
			items = append(items, item)
		}
		return Value{kind: KindArray, arr: items}, nil
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			val, err := decodeYAMLNode(valNode)
			if err != nil {
				return Null, err
			}
			obj = obj.Set(keyNode.Value, val)
		}
		return obj, nil
	default:
		return Null, fmt.Errorf("value: unsupported yaml node kind %v", node.Kind)
	}
}

func decodeYAMLScalar(node *yaml.Node) (Value, error) {
	if node.Tag == "!!null" || (node.Tag == "" && node.Value == "") {
		return Null, nil
	}
	switch node.Tag {
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return Null, err
		}
		return Bool(b), nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return Null, err
		}
		return Number(f), nil
	default:
		return String(node.Value), nil
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.ToAny(), nil
}

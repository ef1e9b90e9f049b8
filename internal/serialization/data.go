// Package serialization writes compiled elements as process-independent
// records keyed by reference ids and loads them back lazily.
package serialization

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/store"
)

// ElementData is a packageable element with every instance it owns.
type ElementData struct {
	Path           string          `msgpack:"path"`
	Classifier     string          `msgpack:"classifier"`
	Instances      []InstanceData  `msgpack:"instances"`
	BackReferences []BackReference `msgpack:"-"`
}

// InstanceData is the serialized state of one instance.
type InstanceData struct {
	ReferenceID   string                   `msgpack:"id"`
	Name          string                   `msgpack:"name,omitempty"`
	Classifier    string                   `msgpack:"classifier"`
	Source        *model.SourceInformation `msgpack:"source,omitempty"`
	CompileStates model.CompileState       `msgpack:"states,omitempty"`
	Properties    []PropertyData           `msgpack:"properties,omitempty"`
}

// PropertyData holds the values of one property under its real key. An
// empty Values list is a property explicitly initialized as empty.
type PropertyData struct {
	Key    []string `msgpack:"key"`
	Values []Value  `msgpack:"values"`
}

// Name returns the property name, the last element of its real key.
func (p PropertyData) Name() string { return p.Key[len(p.Key)-1] }

// Value is either a reference id or a primitive literal with its type.
type Value struct {
	Ref     string `msgpack:"r,omitempty"`
	Type    string `msgpack:"t,omitempty"`
	Literal string `msgpack:"l,omitempty"`
}

// IsPrimitive reports whether the value is a literal.
func (v Value) IsPrimitive() bool { return v.Type != "" }

func (v Value) String() string {
	if v.IsPrimitive() {
		return fmt.Sprintf("%s(%s)", v.Type, v.Literal)
	}
	return v.Ref
}

// primitiveValue encodes a primitive instance.
func primitiveValue(instance model.CoreInstance) Value {
	typeName := model.TypeString
	if c := instance.Classifier(); c != nil {
		typeName = c.Name()
	}
	return Value{Type: typeName, Literal: instance.Name()}
}

// literal decodes the Go value of a primitive Value.
func (v Value) literal() (any, error) {
	switch v.Type {
	case model.TypeBoolean:
		return strconv.ParseBool(v.Literal)
	case model.TypeInteger:
		return strconv.ParseInt(v.Literal, 10, 64)
	case model.TypeFloat:
		return strconv.ParseFloat(v.Literal, 64)
	default:
		return v.Literal, nil
	}
}

// BackReference is an inverse edge contributed by an instance of one
// element to an instance of another: Target carries Property, whose value
// is Referrer. Reference usages also record the referring property and
// the offset of the value within it.
type BackReference struct {
	Target        string `msgpack:"target"`
	Property      string `msgpack:"property"`
	Referrer      string `msgpack:"referrer"`
	UsageProperty string `msgpack:"usageProperty,omitempty"`
	Offset        int    `msgpack:"offset,omitempty"`
}

func (b BackReference) less(o BackReference) bool {
	if b.Target != o.Target {
		return b.Target < o.Target
	}
	if b.Property != o.Property {
		return b.Property < o.Property
	}
	if b.Referrer != o.Referrer {
		return b.Referrer < o.Referrer
	}
	if b.UsageProperty != o.UsageProperty {
		return b.UsageProperty < o.UsageProperty
	}
	return b.Offset < o.Offset
}

// SortBackReferences orders back references independently of the order
// in which bind registered them.
func SortBackReferences(refs []BackReference) {
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].less(refs[j]) })
}

// EncodeRecord encodes an element as a store record.
func EncodeRecord(data *ElementData) (store.Record, error) {
	body, err := msgpack.Marshal(data)
	if err != nil {
		return store.Record{}, fmt.Errorf("encode element %s: %w", data.Path, err)
	}
	record := store.Record{Path: data.Path, Classifier: data.Classifier, Data: body}
	if len(data.BackReferences) > 0 {
		if record.BackReferences, err = msgpack.Marshal(data.BackReferences); err != nil {
			return store.Record{}, fmt.Errorf("encode back references of %s: %w", data.Path, err)
		}
	}
	return record, nil
}

// DecodeRecord decodes a record written by EncodeRecord. Records returned
// by Store.Index decode to elements without instances.
func DecodeRecord(record store.Record) (*ElementData, error) {
	data := &ElementData{Path: record.Path, Classifier: record.Classifier}
	if len(record.Data) > 0 {
		if err := msgpack.Unmarshal(record.Data, data); err != nil {
			return nil, fmt.Errorf("decode element %s: %w", record.Path, err)
		}
	}
	refs, err := DecodeBackReferences(record)
	if err != nil {
		return nil, err
	}
	data.BackReferences = refs
	return data, nil
}

// DecodeBackReferences decodes only the back references of a record.
func DecodeBackReferences(record store.Record) ([]BackReference, error) {
	if len(record.BackReferences) == 0 {
		return nil, nil
	}
	var refs []BackReference
	if err := msgpack.Unmarshal(record.BackReferences, &refs); err != nil {
		return nil, fmt.Errorf("decode back references of %s: %w", record.Path, err)
	}
	return refs, nil
}

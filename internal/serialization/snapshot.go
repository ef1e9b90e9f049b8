package serialization

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotElement is ElementData with its back references inlined.
type snapshotElement struct {
	ElementData    `msgpack:",inline"`
	BackReferences []BackReference `msgpack:"backReferences,omitempty"`
}

// Snapshot encodes the whole graph in a canonical form: elements sorted by
// path, instances by reference id and back references normalized. Two
// graphs with equal snapshots are structurally identical apart from
// process-local instance ids.
func Snapshot(ctx context.Context, serializer *Serializer) ([]byte, error) {
	elements, err := serializer.Serialize(ctx)
	if err != nil {
		return nil, err
	}
	return EncodeSnapshot(elements)
}

// EncodeSnapshot encodes already serialized elements canonically.
func EncodeSnapshot(elements []*ElementData) ([]byte, error) {
	out := make([]snapshotElement, 0, len(elements))
	for _, e := range elements {
		refs := append([]BackReference(nil), e.BackReferences...)
		SortBackReferences(refs)
		out = append(out, snapshotElement{ElementData: *e, BackReferences: refs})
	}
	b, err := msgpack.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(b []byte) ([]*ElementData, error) {
	var in []snapshotElement
	if err := msgpack.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := make([]*ElementData, 0, len(in))
	for i := range in {
		e := in[i].ElementData
		e.BackReferences = in[i].BackReferences
		out = append(out, &e)
	}
	return out, nil
}

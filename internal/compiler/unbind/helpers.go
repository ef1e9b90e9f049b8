package unbind

import (
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// rawType returns the raw type of a generic type, or nil.
func rawType(state *State, genericType model.CoreInstance) model.CoreInstance {
	if genericType == nil {
		return nil
	}
	return state.Resolve(genericType, genericType.ValueToOne(metamodel.PropRawType))
}

// cleanGenericType clears the stub of a generic type's raw type.
func cleanGenericType(state *State, genericType model.CoreInstance) {
	if genericType != nil {
		state.support.CleanImportStub(genericType.ValueToOne(metamodel.PropRawType))
	}
}

// removeRawTypeUsage undoes the usage recorded for a generic type on its
// raw type and cleans the raw type stub.
func removeRawTypeUsage(state *State, genericType model.CoreInstance) {
	if genericType == nil {
		return
	}
	if raw := rawType(state, genericType); raw != nil {
		state.support.RemoveReferenceUsage(raw, genericType, metamodel.PropRawType, 0)
	}
	cleanGenericType(state, genericType)
}

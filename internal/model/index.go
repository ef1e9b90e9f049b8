package model

import "fmt"

// ValuesByIndex scans a to-many property and returns every value whose
// extracted key equals key, in property order.
func ValuesByIndex[K comparable](instance CoreInstance, property string, keyFn func(CoreInstance) K, key K) []CoreInstance {
	var matches []CoreInstance
	for _, value := range instance.ValuesToMany(property) {
		if keyFn(value) == key {
			matches = append(matches, value)
		}
	}
	return matches
}

// ValueByIDIndex returns the single value of a to-many property whose id
// is id. It returns nil when there is none and an error on duplicates.
func ValueByIDIndex(instance CoreInstance, property string, idFn func(CoreInstance) string, id string) (CoreInstance, error) {
	matches := ValuesByIndex(instance, property, idFn, id)
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("id conflict: %d values of property '%s' of %v have the id '%s'", len(matches), property, instance, id)
	}
}

// ValueByName looks a value up by instance name in a to-many property.
func ValueByName(instance CoreInstance, property, name string) CoreInstance {
	matches := ValuesByIndex(instance, property, CoreInstance.Name, name)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

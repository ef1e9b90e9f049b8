package navigation

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
)

// ClassPropertyByName finds a property available on a class: its own and
// association properties, then qualified properties taking no parameters,
// searched across the class hierarchy. It returns nil when there is none.
func (s *Support) ClassPropertyByName(class model.CoreInstance, name string) (model.CoreInstance, error) {
	types, err := s.TypeGeneralizations(class)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		for _, prop := range []string{metamodel.PropProperties, metamodel.PropPropertiesFromAssociations} {
			if p := model.ValueByName(t, prop, name); p != nil {
				return p, nil
			}
		}
	}
	for _, t := range types {
		for _, prop := range []string{metamodel.PropQualifiedProperties, metamodel.PropQualifiedPropertiesFromAssociations} {
			for _, q := range model.ValuesByIndex(t, prop, model.CoreInstance.Name, name) {
				if len(q.ValuesToMany(metamodel.PropParameters)) == 0 {
					return q, nil
				}
			}
		}
	}
	return nil, nil
}

// AllProperties returns the simple properties of a class, including those
// inherited and contributed by associations, nearest first.
func (s *Support) AllProperties(class model.CoreInstance) []model.CoreInstance {
	var out []model.CoreInstance
	for _, t := range s.TypeGeneralizationsLenient(class) {
		out = append(out, t.ValuesToMany(metamodel.PropProperties)...)
		out = append(out, t.ValuesToMany(metamodel.PropPropertiesFromAssociations)...)
	}
	return out
}

// RawType resolves the raw type of a generic type.
func (s *Support) RawType(genericType model.CoreInstance) (model.CoreInstance, error) {
	if genericType == nil {
		return nil, nil
	}
	return s.WithImportStubByPass(genericType.ValueToOne(metamodel.PropRawType))
}

// IsClass reports whether instance is a class (user defined or meta).
func (s *Support) IsClass(instance model.CoreInstance) bool {
	return s.ClassifierIs(instance, metamodel.Class)
}

// IsType reports whether instance is a class, primitive type or enumeration.
func (s *Support) IsType(instance model.CoreInstance) bool {
	return s.InstanceOf(instance, metamodel.Type)
}

// NewGenericType creates a generic type whose raw type is raw.
func (s *Support) NewGenericType(raw model.CoreInstance, source *model.SourceInformation) model.CoreInstance {
	gt := s.repo.NewAnonymousInstance(s.meta.Class(metamodel.GenericType), source)
	gt.SetKeyValues(metamodel.KeyRawType, []model.CoreInstance{raw})
	return gt
}

// MultiplicityBounds returns the bounds of a multiplicity; an open upper
// bound is metamodel.Unbounded.
func MultiplicityBounds(multiplicity model.CoreInstance) (lower, upper int) {
	if multiplicity == nil {
		return 0, metamodel.Unbounded
	}
	l, _ := IntValue(multiplicity, metamodel.PropLowerBound)
	u, ok := IntValue(multiplicity, metamodel.PropUpperBound)
	if !ok {
		return int(l), metamodel.Unbounded
	}
	return int(l), int(u)
}

// MultiplicityString renders bounds the way they are written in
// signatures: 1, 0..1, *, 1..*, 2..5.
func MultiplicityString(lower, upper int) string {
	switch {
	case upper == metamodel.Unbounded && lower == 0:
		return "*"
	case upper == metamodel.Unbounded:
		return fmt.Sprintf("%d..*", lower)
	case lower == upper:
		return fmt.Sprintf("%d", lower)
	default:
		return fmt.Sprintf("%d..%d", lower, upper)
	}
}

// ParseMultiplicity parses the forms produced by MultiplicityString.
func ParseMultiplicity(literal string) (lower, upper int, err error) {
	literal = strings.TrimSpace(literal)
	if literal == "*" {
		return 0, metamodel.Unbounded, nil
	}
	lo, hi, ranged := strings.Cut(literal, "..")
	if _, err := fmt.Sscanf(lo, "%d", &lower); err != nil || lower < 0 {
		return 0, 0, fmt.Errorf("invalid lower bound in %q", literal)
	}
	if !ranged {
		return lower, lower, nil
	}
	if hi == "*" {
		return lower, metamodel.Unbounded, nil
	}
	if _, err := fmt.Sscanf(hi, "%d", &upper); err != nil || upper < lower {
		return 0, 0, fmt.Errorf("invalid upper bound in %q", literal)
	}
	return lower, upper, nil
}

// Multiplicity returns the shared multiplicity for the bounds or creates an anonymous one.
func (s *Support) Multiplicity(lower, upper int, source *model.SourceInformation) model.CoreInstance {
	if shared := s.meta.SharedMultiplicity(lower, upper); shared != nil {
		return shared
	}
	return s.meta.NewMultiplicity(lower, upper, source)
}

// TypeSignature renders a generic type and multiplicity as Name[mult],
// leaving unresolved types as their stub identifiers.
func (s *Support) TypeSignature(genericType, multiplicity model.CoreInstance) string {
	name := "?"
	if genericType != nil {
		raw := genericType.ValueToOne(metamodel.PropRawType)
		if resolved := s.WithImportStubByPassDoNotResolve(raw); resolved != nil {
			name = resolved.Name()
		} else if raw != nil {
			name = StringValue(raw, metamodel.PropIDOrPath)
		}
	}
	lower, upper := MultiplicityBounds(multiplicity)
	return fmt.Sprintf("%s[%s]", name, MultiplicityString(lower, upper))
}

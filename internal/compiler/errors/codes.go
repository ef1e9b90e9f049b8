package errors

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/metacore/internal/model"
)

const (
	// ErrParse indicates the source text could not be parsed.
	ErrParse ErrorCode = "SYN001"
	// ErrInvalidMultiplicity indicates a malformed multiplicity literal.
	ErrInvalidMultiplicity ErrorCode = "SYN002"
	// ErrDuplicateElement indicates two elements share a path.
	ErrDuplicateElement ErrorCode = "SYN003"

	// ErrUndefined indicates an identifier could not be resolved.
	ErrUndefined ErrorCode = "RES101"
	// ErrAmbiguousImport indicates an identifier matched several imports.
	ErrAmbiguousImport ErrorCode = "RES102"
	// ErrUnknownStereotype indicates a stereotype is missing from its profile.
	ErrUnknownStereotype ErrorCode = "RES103"
	// ErrUnknownTag indicates a tag is missing from its profile.
	ErrUnknownTag ErrorCode = "RES104"
	// ErrUnknownProperty indicates a property is missing from a type.
	ErrUnknownProperty ErrorCode = "RES105"
	// ErrUnknownEnumValue indicates an enum value is missing from an enumeration.
	ErrUnknownEnumValue ErrorCode = "RES106"
	// ErrUnknownVariable indicates an expression uses an undeclared variable.
	ErrUnknownVariable ErrorCode = "RES107"

	// ErrReturnType indicates a function body does not match its return type.
	ErrReturnType ErrorCode = "TYP201"
	// ErrExpectedClass indicates a type was required to be a class.
	ErrExpectedClass ErrorCode = "TYP202"
	// ErrExpectedType indicates a reference resolved to something that is not a type.
	ErrExpectedType ErrorCode = "TYP203"
	// ErrReturnMultiplicity indicates a function body does not match its return multiplicity.
	ErrReturnMultiplicity ErrorCode = "TYP204"

	// ErrAssociationArity indicates an association without exactly two properties.
	ErrAssociationArity ErrorCode = "VAL301"
	// ErrPropertyConflict indicates an association property clashes with an existing one.
	ErrPropertyConflict ErrorCode = "VAL302"
	// ErrCircularGeneralization indicates a class hierarchy cycle.
	ErrCircularGeneralization ErrorCode = "VAL303"
	// ErrDuplicateProperty indicates two properties of a class share a name.
	ErrDuplicateProperty ErrorCode = "VAL304"
	// ErrInternal wraps unexpected failures surfaced during compilation.
	ErrInternal ErrorCode = "VAL399"
)

// NewParseError creates a SYN001 error.
func NewParseError(source *model.SourceInformation, message string) *CompilationError {
	return New(ErrParse, CategorySyntax, source, "%s", message)
}

// NewUndefined creates a RES101 error.
func NewUndefined(source *model.SourceInformation, id string) *CompilationError {
	return New(ErrUndefined, CategoryResolution, source, "%s has not been defined!", id)
}

// NewAmbiguousImport creates a RES102 error; candidates are element paths.
func NewAmbiguousImport(source *model.SourceInformation, id string, candidates []string) *CompilationError {
	return New(ErrAmbiguousImport, CategoryResolution, source,
		"%s has been found more than one time in the imports: [%s]", id, strings.Join(candidates, ", "))
}

// NewUnknownStereotype creates a RES103 error.
func NewUnknownStereotype(source *model.SourceInformation, stereotype, profile string) *CompilationError {
	return New(ErrUnknownStereotype, CategoryResolution, source,
		"The stereotype '%s' can't be found in profile '%s'", stereotype, profile)
}

// NewUnknownTag creates a RES104 error.
func NewUnknownTag(source *model.SourceInformation, tag, profile string) *CompilationError {
	return New(ErrUnknownTag, CategoryResolution, source,
		"The tag '%s' can't be found in profile '%s'", tag, profile)
}

// NewUnknownProperty creates a RES105 error.
func NewUnknownProperty(source *model.SourceInformation, property, typePath string) *CompilationError {
	return New(ErrUnknownProperty, CategoryResolution, source,
		"The property '%s' can't be found in the type '%s' or in its hierarchy.", property, typePath)
}

// NewPropertyNotInClass creates a RES105 error for property access expressions.
func NewPropertyNotInClass(source *model.SourceInformation, property, classPath string) *CompilationError {
	return New(ErrUnknownProperty, CategoryResolution, source,
		"Can't find the property '%s' in the class %s", property, classPath)
}

// NewUnknownEnumValue creates a RES106 error.
func NewUnknownEnumValue(source *model.SourceInformation, value, enumeration string) *CompilationError {
	return New(ErrUnknownEnumValue, CategoryResolution, source,
		"The enum value '%s' can't be found in the enumeration %s", value, enumeration)
}

// NewUnknownVariable creates a RES107 error.
func NewUnknownVariable(source *model.SourceInformation, name string) *CompilationError {
	return New(ErrUnknownVariable, CategoryResolution, source, "The variable '%s' is unknown!", name)
}

// NewReturnTypeError creates a TYP201 error.
func NewReturnTypeError(source *model.SourceInformation, function, found, expected string) *CompilationError {
	return New(ErrReturnType, CategoryType, source,
		"Return type error in function '%s'; found: %s; expected: %s", function, found, expected)
}

// NewReturnMultiplicityError creates a TYP204 error.
func NewReturnMultiplicityError(source *model.SourceInformation, function, found, expected string) *CompilationError {
	return New(ErrReturnMultiplicity, CategoryType, source,
		"Return multiplicity error in function '%s'; found: [%s]; expected: [%s]", function, found, expected)
}

// NewExpectedClass creates a TYP202 error.
func NewExpectedClass(source *model.SourceInformation, found string) *CompilationError {
	return New(ErrExpectedClass, CategoryType, source, "Expected a class, found: %s", found)
}

// NewExpectedType creates a TYP203 error.
func NewExpectedType(source *model.SourceInformation, found string) *CompilationError {
	return New(ErrExpectedType, CategoryType, source, "%s is not a type", found)
}

// NewAssociationArity creates a VAL301 error.
func NewAssociationArity(source *model.SourceInformation, association string, found int) *CompilationError {
	return New(ErrAssociationArity, CategoryValidation, source,
		"Expected 2 properties for association '%s', found %d", association, found)
}

// NewPropertyConflict creates a VAL302 error.
func NewPropertyConflict(source *model.SourceInformation, property, classPath string) *CompilationError {
	return New(ErrPropertyConflict, CategoryValidation, source,
		"Property conflict on class %s: property '%s' defined more than once", classPath, property)
}

// NewCircularGeneralization creates a VAL303 error.
func NewCircularGeneralization(source *model.SourceInformation, cycle []string) *CompilationError {
	return New(ErrCircularGeneralization, CategoryValidation, source,
		"Class hierarchy cycle: %s", strings.Join(cycle, " -> "))
}

// NewDuplicateProperty creates a VAL304 error.
func NewDuplicateProperty(source *model.SourceInformation, property, classPath string) *CompilationError {
	return New(ErrDuplicateProperty, CategoryValidation, source,
		"Property '%s' is defined more than once in %s", property, classPath)
}

// NewDuplicateElement creates a SYN003 error.
func NewDuplicateElement(source *model.SourceInformation, path string) *CompilationError {
	return New(ErrDuplicateElement, CategorySyntax, source, "The element '%s' already exists", path)
}

// NewInvalidMultiplicity creates a SYN002 error.
func NewInvalidMultiplicity(source *model.SourceInformation, literal string) *CompilationError {
	return New(ErrInvalidMultiplicity, CategorySyntax, source, "Invalid multiplicity '%s'", literal)
}

// Wrapf attaches context to a compilation error without losing its location.
func Wrapf(err *CompilationError, format string, args ...any) *CompilationError {
	out := *err
	out.Message = fmt.Sprintf(format, args...) + ": " + err.Message
	return &out
}

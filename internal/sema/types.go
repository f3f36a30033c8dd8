package sema

import "github.com/Pang-HQ/Pangea/internal/token"

// TypeKind tags the variant a SemanticType holds.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindArray
	KindPointer
	KindFunction
	KindVoid
	KindError
)

// SemanticType is the sum type spec.md §3 describes:
// {primitive(name), array(element), pointer(kind-name, pointee), function(params, return), void, error}.
type SemanticType struct {
	Kind TypeKind

	// primitive
	Name string

	// array
	Elem *SemanticType
	Size int64

	// pointer
	PointerKind string // "cptr", "unique_ptr", "shared_ptr", "weak_ptr"
	Pointee     *SemanticType

	// function
	Params   []*SemanticType
	Variadic bool
	Return   *SemanticType

	IsConst bool
}

func Primitive(name string) *SemanticType { return &SemanticType{Kind: KindPrimitive, Name: name} }
func VoidType() *SemanticType              { return &SemanticType{Kind: KindVoid} }
func ErrorType() *SemanticType             { return &SemanticType{Kind: KindError} }

// Clone returns a fresh deep copy, matching spec.md §9's "SemanticType is
// always a fresh deep clone at the point it is attached to a new symbol or
// expression" ownership rule.
func (t *SemanticType) Clone() *SemanticType {
	if t == nil {
		return nil
	}
	c := *t
	c.Elem = t.Elem.Clone()
	c.Pointee = t.Pointee.Clone()
	c.Return = t.Return.Clone()
	if t.Params != nil {
		c.Params = make([]*SemanticType, len(t.Params))
		for i, p := range t.Params {
			c.Params[i] = p.Clone()
		}
	}
	return &c
}

// Equals is explicit structural comparison, used throughout sema instead of
// reflect.DeepEqual (see DESIGN.md).
func (t *SemanticType) Equals(o *SemanticType) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindPrimitive:
		return t.Name == o.Name
	case KindArray:
		return t.Size == o.Size && t.Elem.Equals(o.Elem)
	case KindPointer:
		return t.PointerKind == o.PointerKind && t.Pointee.Equals(o.Pointee)
	case KindFunction:
		if len(t.Params) != len(o.Params) || t.Variadic != o.Variadic {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equals(o.Params[i]) {
				return false
			}
		}
		return t.Return.Equals(o.Return)
	case KindVoid, KindError:
		return true
	default:
		return false
	}
}

func (t *SemanticType) IsError() bool { return t != nil && t.Kind == KindError }
func (t *SemanticType) IsVoid() bool  { return t != nil && t.Kind == KindVoid }

func (t *SemanticType) IsNumeric() bool {
	return t != nil && t.Kind == KindPrimitive && token.NUMERIC_TYPES[primitiveKind(t.Name)]
}

func (t *SemanticType) IsInteger() bool {
	return t != nil && t.Kind == KindPrimitive && token.INTEGER_TYPES[primitiveKind(t.Name)]
}

func (t *SemanticType) IsFloat() bool {
	return t != nil && t.Kind == KindPrimitive && token.FLOAT_TYPES[primitiveKind(t.Name)]
}

func (t *SemanticType) IsBoolean() bool {
	return t != nil && t.Kind == KindPrimitive && t.Name == "bool"
}

func (t *SemanticType) IsString() bool {
	return t != nil && t.Kind == KindPrimitive && t.Name == "string"
}

func (t *SemanticType) IsPointer() bool { return t != nil && t.Kind == KindPointer }

func (t *SemanticType) IsNull() bool {
	return t != nil && t.Kind == KindPrimitive && t.Name == "null"
}

// primitiveKind maps a canonical primitive name back to its token.Kind so the
// token package's numeric tables (rank, bit size) can be reused.
func primitiveKind(name string) token.Kind {
	if k, ok := token.KEYWORDS[name]; ok {
		return k
	}
	return token.INVALID
}

// CommonNumericType implements spec.md §4.4's "Common numeric type" rule:
// if either operand is float, the result is the wider float (f64 > f32);
// else the wider integer by rank.
func CommonNumericType(a, b *SemanticType) *SemanticType {
	if a.IsFloat() || b.IsFloat() {
		if a.Name == "f64" || b.Name == "f64" {
			return Primitive("f64")
		}
		return Primitive("f32")
	}
	if primitiveKind(a.Name).Rank() >= primitiveKind(b.Name).Rank() {
		return a.Clone()
	}
	return b.Clone()
}

// ConvertASTPrimitiveName maps a token.Kind naming a primitive type to its
// canonical SemanticType name per spec.md §4.4's "Type conversion" table.
func ConvertASTPrimitiveName(k token.Kind) string {
	switch k {
	case token.SELF:
		return "self"
	case token.RAW_VA_LIST:
		return "raw_va_list"
	default:
		return k.String()
	}
}

// Package types implements the interned type descriptors shared by every
// later compiler phase. A Type is created exactly once by a Registry; all
// other code holds non-owning *Type references and compares them by
// pointer identity, never by structural equality.
package types

import (
	"fmt"
	"strings"
)

// Kind tags which Type variant a descriptor is.
type Kind int

const (
	KindPrimitive Kind = iota
	KindPointer
	KindArray
	KindStruct
	KindOpaque
	KindUnresolved
	KindGeneric
)

// PrimitiveKind enumerates the primitive scalar types.
type PrimitiveKind int

const (
	I8 PrimitiveKind = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Bool
	Void
	String
)

var primitiveNames = map[PrimitiveKind]string{
	I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	U8: "u8", U16: "u16", U32: "u32", U64: "u64",
	F32: "f32", F64: "f64", Bool: "bool", Void: "void", String: "str",
}

// MethodSignature describes one method attached to a Struct type.
type MethodSignature struct {
	Name       string
	ParamTypes []*Type
	ReturnType *Type
	HasSelf    bool
	HasMutSelf bool
	IsPublic   bool
}

// Field is one (name, type) entry of a Struct's declared field list, in
// declaration order — that order is ABI-significant (spec.md §3.1).
type Field struct {
	Name string
	Type *Type
}

// Type is the single interned descriptor for every type in the language.
// Only a Registry constructs Types; equality between two Types is always
// pointer equality.
type Type struct {
	Kind Kind

	// KindPrimitive
	Primitive PrimitiveKind

	// KindPointer
	Pointee *Type

	// KindArray
	Element *Type
	Size    int

	// KindStruct
	Name    string
	Fields  []Field
	Methods []MethodSignature
	isStub  bool

	// KindUnresolved
	UnresolvedName string

	// KindGeneric — produced by the parser for "Name<P, ...>" annotations
	// and interned structurally by the registry; no later phase handles
	// them.
	GenericName   string
	GenericParams []*Type
}

// IsUnsigned reports whether a primitive type is an unsigned integer kind.
func (t *Type) IsUnsigned() bool {
	return t.Kind == KindPrimitive && (t.Primitive == U8 || t.Primitive == U16 || t.Primitive == U32 || t.Primitive == U64)
}

// IsSignedInt reports whether a primitive type is a signed integer kind.
func (t *Type) IsSignedInt() bool {
	return t.Kind == KindPrimitive && (t.Primitive == I8 || t.Primitive == I16 || t.Primitive == I32 || t.Primitive == I64)
}

// IsInteger reports whether a primitive type is any integer kind.
func (t *Type) IsInteger() bool {
	return t.IsSignedInt() || t.IsUnsigned()
}

// IsFloat reports whether a primitive type is a float kind.
func (t *Type) IsFloat() bool {
	return t.Kind == KindPrimitive && (t.Primitive == F32 || t.Primitive == F64)
}

// IsNumeric reports whether the type participates in arithmetic.
func (t *Type) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsStub reports whether a Struct type was pre-registered but not yet
// completed with its field list (spec.md §3.1 "stub struct").
func (t *Type) IsStub() bool {
	return t.Kind == KindStruct && t.isStub
}

// FieldIndex returns the declaration-order index of a struct field, or -1.
func (t *Type) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FieldType returns the type of a struct field, or nil if it doesn't exist.
func (t *Type) FieldType(name string) *Type {
	if i := t.FieldIndex(name); i >= 0 {
		return t.Fields[i].Type
	}
	return nil
}

// Method returns the named method signature, or nil.
func (t *Type) Method(name string) *MethodSignature {
	for i := range t.Methods {
		if t.Methods[i].Name == name {
			return &t.Methods[i]
		}
	}
	return nil
}

// String renders the type the way diagnostics and MIR dumps print it.
func (t *Type) String() string {
	switch t.Kind {
	case KindPrimitive:
		return primitiveNames[t.Primitive]
	case KindPointer:
		return "ptr " + t.Pointee.String()
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.Element.String(), t.Size)
	case KindStruct:
		return t.Name
	case KindOpaque:
		return "opaque"
	case KindUnresolved:
		return "unresolved(" + t.UnresolvedName + ")"
	case KindGeneric:
		var b strings.Builder
		b.WriteString(t.GenericName)
		b.WriteString("<")
		for i, p := range t.GenericParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteString(">")
		return b.String()
	default:
		return "<invalid type>"
	}
}

// structuralKey produces a string uniquely identifying the structural
// shape of a non-struct, non-primitive type, used to dedupe interned
// descriptors. Structs are keyed by name alone (see Registry.RegisterStruct
// and Registry.RegisterStructStub).
func structuralKey(k Kind, elemOrPointee *Type, size int, name string) string {
	var b strings.Builder
	switch k {
	case KindArray:
		b.WriteString("array:")
		b.WriteString(elemOrPointee.cacheKey())
		fmt.Fprintf(&b, ":%d", size)
	case KindPointer:
		b.WriteString("ptr:")
		b.WriteString(elemOrPointee.cacheKey())
	case KindUnresolved:
		b.WriteString("unresolved:")
		b.WriteString(name)
	}
	return b.String()
}

// genericKey builds the structural intern key for a Generic(name, params).
func genericKey(name string, params []*Type) string {
	var b strings.Builder
	b.WriteString("generic:")
	b.WriteString(name)
	for _, p := range params {
		b.WriteString(":")
		b.WriteString(p.cacheKey())
	}
	return b.String()
}

// cacheKey is a stable identity string for a *Type, used only to key the
// structural intern maps (Array/Pointer/Unresolved); it is never compared
// across Types for equality purposes — identity is always the pointer.
func (t *Type) cacheKey() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindPrimitive:
		return fmt.Sprintf("prim:%d", t.Primitive)
	case KindOpaque:
		return "opaque"
	case KindStruct:
		return "struct:" + t.Name
	default:
		return structuralKey(t.Kind, elemOf(t), sizeOf(t), nameOf(t))
	}
}

func elemOf(t *Type) *Type {
	if t.Kind == KindArray {
		return t.Element
	}
	return t.Pointee
}

func sizeOf(t *Type) int {
	if t.Kind == KindArray {
		return t.Size
	}
	return 0
}

func nameOf(t *Type) string {
	if t.Kind == KindUnresolved {
		return t.UnresolvedName
	}
	return ""
}

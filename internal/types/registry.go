package types

import (
	"fmt"
	"sync"
)

// Registry is the sole creator of Type values (spec.md §3.1). It interns
// primitives and Opaque as singletons, keys Array/Pointer/Unresolved
// structurally, and keys Struct by name.
//
// The registry is shared across every module in a build (spec.md §5). The
// parser, semantic analysis and lowering all intern descriptors through it,
// and semantic analysis completes struct stubs and appends their methods.
// The intern maps are guarded by mu; the Fields and Methods of a returned
// struct descriptor are not.
type Registry struct {
	mu sync.Mutex

	primitives map[PrimitiveKind]*Type
	opaque     *Type
	arrays     map[string]*Type
	pointers   map[string]*Type
	unresolved map[string]*Type
	structs    map[string]*Type
	generics   map[string]*Type
}

// NewRegistry returns an empty registry with primitives pre-interned.
func NewRegistry() *Registry {
	r := &Registry{
		primitives: make(map[PrimitiveKind]*Type),
		arrays:     make(map[string]*Type),
		pointers:   make(map[string]*Type),
		unresolved: make(map[string]*Type),
		structs:    make(map[string]*Type),
		generics:   make(map[string]*Type),
	}
	for k := range primitiveNames {
		r.primitives[k] = &Type{Kind: KindPrimitive, Primitive: k}
	}
	r.opaque = &Type{Kind: KindOpaque}
	return r
}

// GetPrimitive returns the singleton descriptor for a primitive kind.
func (r *Registry) GetPrimitive(kind PrimitiveKind) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primitives[kind]
}

// GetOpaque returns the singleton Opaque descriptor.
func (r *Registry) GetOpaque() *Type {
	return r.opaque
}

// GetArray returns the unique Array(element, size) descriptor, interning
// it on first request. size must be >= 1 (spec.md §3.1 invariant).
func (r *Registry) GetArray(elem *Type, size int) (*Type, error) {
	if size < 1 {
		return nil, fmt.Errorf("array size must be >= 1, got %d", size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := structuralKey(KindArray, elem, size, "")
	if t, ok := r.arrays[key]; ok {
		return t, nil
	}
	t := &Type{Kind: KindArray, Element: elem, Size: size}
	r.arrays[key] = t
	return t, nil
}

// GetPointer returns the unique Pointer(pointee) descriptor.
func (r *Registry) GetPointer(pointee *Type) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := structuralKey(KindPointer, pointee, 0, "")
	if t, ok := r.pointers[key]; ok {
		return t
	}
	t := &Type{Kind: KindPointer, Pointee: pointee}
	r.pointers[key] = t
	return t
}

// GetUnresolved returns the unique forward-reference descriptor for name.
func (r *Registry) GetUnresolved(name string) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := structuralKey(KindUnresolved, nil, 0, name)
	if t, ok := r.unresolved[key]; ok {
		return t
	}
	t := &Type{Kind: KindUnresolved, UnresolvedName: name}
	r.unresolved[key] = t
	return t
}

// GetGeneric returns the unique Generic(name, params) descriptor. The parser
// produces one for a "Name<P, ...>" type annotation; no later phase handles
// Generic types.
func (r *Registry) GetGeneric(name string, params []*Type) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := genericKey(name, params)
	if t, ok := r.generics[key]; ok {
		return t
	}
	t := &Type{Kind: KindGeneric, GenericName: name, GenericParams: params}
	r.generics[key] = t
	return t
}

// RegisterStructStub installs (or returns the existing) empty-fielded
// struct descriptor for name. Idempotent, per spec.md §4.2.
func (r *Registry) RegisterStructStub(name string) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.structs[name]; ok {
		return t
	}
	t := &Type{Kind: KindStruct, Name: name, isStub: true}
	r.structs[name] = t
	return t
}

// RegisterStruct completes (or creates) the struct descriptor for name with
// the given field list. It succeeds exactly once per fully-defined name: a
// second call against an already-completed struct is an error, but calling
// it against an existing stub completes that stub in place so every
// previously-handed-out *Type to the stub observes the real fields
// (spec.md §4.2, §9 "mutable post-hoc struct completion").
func (r *Registry) RegisterStruct(name string, fields []Field) (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.structs[name]; ok {
		if !t.isStub {
			return nil, fmt.Errorf("struct %q is already registered", name)
		}
		t.Fields = fields
		t.isStub = false
		return t, nil
	}
	t := &Type{Kind: KindStruct, Name: name, Fields: fields}
	r.structs[name] = t
	return t, nil
}

// GetStruct returns the registered struct descriptor for name, or nil.
func (r *Registry) GetStruct(name string) *Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.structs[name]
}

// HasStruct reports whether name has been registered (stub or complete).
func (r *Registry) HasStruct(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.structs[name]
	return ok
}

var primitiveNameToKind = map[string]PrimitiveKind{
	"i8": I8, "i16": I16, "i32": I32, "i64": I64,
	"u8": U8, "u16": U16, "u32": U32, "u64": U64,
	"f32": F32, "f64": F64, "bool": Bool, "void": Void, "str": String, "string": String,
}

// ParseTypeName resolves a bare type-name token (as it appears in source,
// e.g. "i32", "Point") to a Type, or returns nil if name is neither a
// primitive spelling nor an already-registered struct. Unknown names that
// might still be forward struct references are the caller's job to wrap in
// GetUnresolved.
func (r *Registry) ParseTypeName(name string) *Type {
	if kind, ok := primitiveNameToKind[name]; ok {
		return r.GetPrimitive(kind)
	}
	if t := r.GetStruct(name); t != nil {
		return t
	}
	return nil
}

package types

import "testing"

func TestPrimitivesAreSingletons(t *testing.T) {
	r := NewRegistry()
	if r.GetPrimitive(I32) != r.GetPrimitive(I32) {
		t.Fatal("I32 must be a singleton")
	}
	if r.GetOpaque() != r.GetOpaque() {
		t.Fatal("Opaque must be a singleton")
	}
}

func TestArrayInterning(t *testing.T) {
	r := NewRegistry()
	i32 := r.GetPrimitive(I32)
	a1, err := r.GetArray(i32, 4)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := r.GetArray(i32, 4)
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Fatal("GetArray(I32,4) must return the same descriptor both times")
	}
	a3, _ := r.GetArray(i32, 5)
	if a1 == a3 {
		t.Fatal("different sizes must not intern to the same descriptor")
	}
}

func TestArrayRejectsNonPositiveSize(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetArray(r.GetPrimitive(I32), 0); err == nil {
		t.Fatal("expected error for size 0")
	}
}

func TestPointerInterning(t *testing.T) {
	r := NewRegistry()
	i32 := r.GetPrimitive(I32)
	p1 := r.GetPointer(i32)
	p2 := r.GetPointer(i32)
	if p1 != p2 {
		t.Fatal("GetPointer must intern structurally")
	}
}

func TestNestedArrayInterning(t *testing.T) {
	r := NewRegistry()
	i32 := r.GetPrimitive(I32)
	inner, _ := r.GetArray(i32, 3)
	outer1, _ := r.GetArray(inner, 2)
	inner2, _ := r.GetArray(i32, 3)
	outer2, _ := r.GetArray(inner2, 2)
	if outer1 != outer2 {
		t.Fatal("structurally identical nested arrays must intern to one descriptor")
	}
}

func TestStructStubThenComplete(t *testing.T) {
	r := NewRegistry()
	stub := r.RegisterStructStub("Point")
	if !stub.IsStub() {
		t.Fatal("freshly registered struct must be a stub")
	}
	i32 := r.GetPrimitive(I32)
	complete, err := r.RegisterStruct("Point", []Field{{Name: "x", Type: i32}, {Name: "y", Type: i32}})
	if err != nil {
		t.Fatal(err)
	}
	if complete != stub {
		t.Fatal("completing a stub must return the same descriptor handed out earlier")
	}
	if stub.IsStub() {
		t.Fatal("stub should no longer report IsStub after completion")
	}
	if stub.FieldIndex("y") != 1 {
		t.Fatalf("FieldIndex(y) = %d, want 1", stub.FieldIndex("y"))
	}
}

func TestRegisterStructTwiceFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.RegisterStruct("Point", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := r.RegisterStruct("Point", nil); err == nil {
		t.Fatal("re-registering a fully defined struct must fail")
	}
}

func TestRegisterStructStubIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.RegisterStructStub("Point")
	b := r.RegisterStructStub("Point")
	if a != b {
		t.Fatal("RegisterStructStub must be idempotent")
	}
}

func TestGenericInterning(t *testing.T) {
	r := NewRegistry()
	i32 := r.GetPrimitive(I32)
	g1 := r.GetGeneric("Vec", []*Type{i32})
	g2 := r.GetGeneric("Vec", []*Type{i32})
	if g1 != g2 {
		t.Fatal("GetGeneric must intern structurally")
	}
	g3 := r.GetGeneric("Vec", []*Type{r.GetPrimitive(I64)})
	if g1 == g3 {
		t.Fatal("different type params must not intern to the same descriptor")
	}
}

func TestParseTypeName(t *testing.T) {
	r := NewRegistry()
	if r.ParseTypeName("i32") != r.GetPrimitive(I32) {
		t.Fatal("ParseTypeName(i32) mismatch")
	}
	if r.ParseTypeName("Nonexistent") != nil {
		t.Fatal("unknown name must return nil")
	}
	r.RegisterStructStub("Vec")
	if r.ParseTypeName("Vec") == nil {
		t.Fatal("stub struct should still resolve by name")
	}
}

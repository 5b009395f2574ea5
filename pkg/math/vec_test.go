package math

import (
	"testing"
)

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 0}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, -2}
	if got, want := a.Min(b), (Vec3{1, -1, -2}); got != want {
		t.Errorf("Vec3.Min() = %v, want %v", got, want)
	}
	if got, want := a.Max(b), (Vec3{3, 5, -2}); got != want {
		t.Errorf("Vec3.Max() = %v, want %v", got, want)
	}
}

func TestVec3ArrayConversion(t *testing.T) {
	a := [3]float32{1, 2, 3}
	if got := V3(a).Array(); got != a {
		t.Errorf("V3().Array() = %v, want %v", got, a)
	}
}

func TestAABB(t *testing.T) {
	var b AABB
	if !b.Empty() {
		t.Fatal("zero AABB should be empty")
	}

	b.Extend(Vec3{1, 1, 1})
	if b.Min != (Vec3{1, 1, 1}) || b.Max != (Vec3{1, 1, 1}) {
		t.Errorf("single point box = %v..%v", b.Min, b.Max)
	}

	b.Extend(Vec3{-1, 3, 1})
	var other AABB
	other.Extend(Vec3{0, 0, -1})
	b.Union(other)
	b.Union(AABB{})

	if b.Min != (Vec3{-1, 0, -1}) || b.Max != (Vec3{1, 3, 1}) {
		t.Errorf("box = %v..%v", b.Min, b.Max)
	}
	if got, want := b.Center(), (Vec3{0, 1.5, 0}); got != want {
		t.Errorf("Center() = %v, want %v", got, want)
	}
	// diagonal is (2, 3, 2)
	if got := b.Radius(); got < 2.06 || got > 2.07 {
		t.Errorf("Radius() = %v, want ~2.06", got)
	}
}

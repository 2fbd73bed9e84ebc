package packaging

import (
	"reflect"
	"testing"
)

func TestCollectionContextClone(t *testing.T) {
	fb := LocationFilesystemRelative("lib")
	orig := &CollectionContext{
		Include:           true,
		Location:          LocationInMemory(),
		LocationFallback:  &fb,
		OptimizeLevelZero: true,
		IncludeSource:     true,
		Variant:           "default",
	}

	dup := orig.Clone()
	if !dup.Equal(orig) {
		t.Fatal("clone should equal the original")
	}

	dup.Include = false
	*dup.LocationFallback = LocationFilesystemRelative("share")
	dup.Variant = "static"

	if !orig.Include {
		t.Error("mutating the clone changed the original Include")
	}
	if *orig.LocationFallback != fb {
		t.Error("mutating the clone changed the original fallback")
	}
	if orig.Variant != "default" {
		t.Error("mutating the clone changed the original variant")
	}
}

func TestCollectionContextCloneNil(t *testing.T) {
	var c *CollectionContext
	if c.Clone() != nil {
		t.Error("Clone of nil context should be nil")
	}
}

func TestOptimizeLevels(t *testing.T) {
	tests := []struct {
		name           string
		zero, one, two bool
		want           []int
	}{
		{name: "none", want: []int{}},
		{name: "zero only", zero: true, want: []int{0}},
		{name: "zero and two", zero: true, two: true, want: []int{0, 2}},
		{name: "all three", zero: true, one: true, two: true, want: []int{0, 1, 2}},
		{name: "one only", one: true, want: []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &CollectionContext{
				OptimizeLevelZero: tt.zero,
				OptimizeLevelOne:  tt.one,
				OptimizeLevelTwo:  tt.two,
			}
			got := c.OptimizeLevels()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("OptimizeLevels() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectionContextEqual(t *testing.T) {
	fb := LocationFilesystemRelative("lib")
	base := &CollectionContext{Include: true, Location: LocationInMemory(), LocationFallback: &fb}

	same := base.Clone()
	if !base.Equal(same) {
		t.Error("clone should be equal")
	}

	noFallback := base.Clone()
	noFallback.LocationFallback = nil
	if base.Equal(noFallback) {
		t.Error("fallback presence should affect equality")
	}

	otherFallback := base.Clone()
	*otherFallback.LocationFallback = LocationFilesystemRelative("share")
	if base.Equal(otherFallback) {
		t.Error("fallback value should affect equality")
	}

	if base.Equal(nil) {
		t.Error("non-nil context should not equal nil")
	}
	var nilCtx *CollectionContext
	if !nilCtx.Equal(nil) {
		t.Error("nil contexts should be equal")
	}
}

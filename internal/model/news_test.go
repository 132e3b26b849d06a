package model

import (
	"slices"
	"testing"
)

func TestNews_Equal(t *testing.T) {
	testCases := []struct {
		name string
		a    *News
		b    *News
		want bool
	}{
		{name: "same id", a: &News{ID: "n1", Title: "a"}, b: &News{ID: "n1", Title: "b"}, want: true},
		{name: "different id", a: &News{ID: "n1"}, b: &News{ID: "n2"}, want: false},
		{name: "both unsaved", a: &News{Title: "x"}, b: &News{Title: "x"}, want: false},
		{name: "one unsaved", a: &News{}, b: &News{ID: "n1"}, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNews_AddTerm(t *testing.T) {
	n := &News{}
	sport := &Term{ID: "t1", Name: "Sport", Vocabulary: "category"}

	n.AddTerm(sport)
	n.AddTerm(&Term{ID: "t1"})
	n.AddTerm(NewTerm(" Sport ", "CATEGORY"))
	n.AddTerm(nil)
	n.AddTerm(&Term{ID: "t2", Name: "Go", Vocabulary: "tag"})

	if got := n.TermIDs(); !slices.Equal(got, []string{"t1", "t2"}) {
		t.Errorf("expected [t1 t2], got %v", got)
	}
}

func TestTerm_Equal(t *testing.T) {
	if !NewTerm(" Sport", "Category ").Equal(NewTerm("Sport", "category")) {
		t.Error("expected normalized terms to be equal")
	}
	if NewTerm("Sport", "category").Equal(NewTerm("sport", "category")) {
		t.Error("expected term names to be case-sensitive")
	}
	if (&Term{}).Equal(&Term{}) {
		t.Error("expected empty terms to be unequal")
	}
}

func TestParseHomepageMode(t *testing.T) {
	if m, ok := ParseHomepageMode(" blocks "); !ok || m != HomepageModeBlocks {
		t.Errorf("expected BLOCKS, got %q ok=%v", m, ok)
	}
	if _, ok := ParseHomepageMode("grid"); ok {
		t.Error("expected unknown mode to be rejected")
	}
}

func TestPrincipal_HasRole(t *testing.T) {
	u := &User{ID: "u1", Username: "alice"}
	u.AddRole(NewRole(RoleAdmin, ""))
	p := NewPrincipal(u, AuthMethodBearer)

	if !p.IsAdmin() {
		t.Error("expected principal to be admin")
	}
	if p.HasRole(RoleEditor) {
		t.Error("expected principal not to be editor")
	}

	var none *Principal
	if none.HasRole(RoleAdmin) {
		t.Error("expected nil principal to hold no roles")
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage([]string{"a", "b"}, 1, 2, 5)
	if p.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", p.TotalPages)
	}

	empty := NewPage[string](nil, 0, 10, 0)
	if empty.Items == nil || empty.TotalPages != 0 {
		t.Errorf("expected empty non-nil page, got %+v", empty)
	}
}

func TestBulkEnums(t *testing.T) {
	if !BulkActionUnpublish.IsValid() || BulkAction("ARCHIVE").IsValid() {
		t.Error("unexpected BulkAction validity")
	}
	if !BulkFilterByTerm.IsValid() || BulkFilterType("BY_DATE").IsValid() {
		t.Error("unexpected BulkFilterType validity")
	}
}

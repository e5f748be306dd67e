package music

import "testing"

func TestMergeOverlaysPresentDimensions(t *testing.T) {
	base := SearchFilter{GenreID: 3, Text: "night"}
	merged := base.Merge(SearchFilter{DirectoryID: 7, Text: "road"})

	if merged.GenreID != 3 {
		t.Errorf("expected genre 3 kept, got %d", merged.GenreID)
	}
	if merged.DirectoryID != 7 {
		t.Errorf("expected directory 7, got %d", merged.DirectoryID)
	}
	if merged.Text != "road" {
		t.Errorf("expected text overlaid, got %q", merged.Text)
	}

	// Merge returns a new value; the receiver must be untouched.
	if base.DirectoryID != 0 || base.Text != "night" {
		t.Errorf("receiver mutated: %+v", base)
	}
}

func TestMergeEmptyKeepsBase(t *testing.T) {
	base := SearchFilter{GenreID: 1, DirectoryID: 2, ReleaseName: "Thriller", Text: "x"}
	if got := base.Merge(SearchFilter{}); got != base {
		t.Errorf("expected %+v, got %+v", base, got)
	}
}

func TestClearRemovesOneDimension(t *testing.T) {
	f := SearchFilter{GenreID: 1, DirectoryID: 2, ReleaseName: "Thriller", Text: "x"}

	cleared := f.Clear(FilterRelease)
	if cleared.ReleaseName != "" {
		t.Errorf("expected release cleared, got %q", cleared.ReleaseName)
	}
	if cleared.GenreID != 1 || cleared.DirectoryID != 2 || cleared.Text != "x" {
		t.Errorf("other dimensions changed: %+v", cleared)
	}
}

func TestIsEmpty(t *testing.T) {
	if !(SearchFilter{}).IsEmpty() {
		t.Error("zero filter should be empty")
	}
	if (SearchFilter{Text: "a"}).IsEmpty() {
		t.Error("filter with text should not be empty")
	}

	f := SearchFilter{GenreID: 5}
	if !f.Clear(FilterGenre).IsEmpty() {
		t.Error("clearing the only dimension should empty the filter")
	}
}

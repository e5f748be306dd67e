package music

// FilterDimension identifies one constraint dimension of a SearchFilter.
type FilterDimension int

const (
	FilterGenre FilterDimension = iota
	FilterDirectory
	FilterRelease
	FilterText
)

// SearchFilter is the set of optional constraints applied to a track
// search. Present dimensions combine with logical AND; a zero value
// restricts nothing. It is a plain value passed into the store so that
// row listings and stats are always computed over the same predicate.
type SearchFilter struct {
	GenreID     int64
	DirectoryID int64
	ReleaseName string
	Text        string
}

// Merge overlays the dimensions present in other onto f and returns
// the result. Dimensions absent in other are kept from f.
func (f SearchFilter) Merge(other SearchFilter) SearchFilter {
	if other.GenreID != 0 {
		f.GenreID = other.GenreID
	}
	if other.DirectoryID != 0 {
		f.DirectoryID = other.DirectoryID
	}
	if other.ReleaseName != "" {
		f.ReleaseName = other.ReleaseName
	}
	if other.Text != "" {
		f.Text = other.Text
	}
	return f
}

// Clear removes one dimension and returns the result.
func (f SearchFilter) Clear(dim FilterDimension) SearchFilter {
	switch dim {
	case FilterGenre:
		f.GenreID = 0
	case FilterDirectory:
		f.DirectoryID = 0
	case FilterRelease:
		f.ReleaseName = ""
	case FilterText:
		f.Text = ""
	}
	return f
}

// IsEmpty reports whether no constraint is set.
func (f SearchFilter) IsEmpty() bool {
	return f.GenreID == 0 && f.DirectoryID == 0 && f.ReleaseName == "" && f.Text == ""
}

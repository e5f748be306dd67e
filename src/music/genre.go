package music

import (
	"fmt"
	"strings"
	"time"
)

// Genre is a named tag shared by many tracks. Names are unique,
// compared case-sensitively.
type Genre struct {
	ID   int64
	Name string
}

// Validate validates the genre fields.
func (g *Genre) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("genre name cannot be empty")
	}
	if len(g.Name) > 100 {
		return fmt.Errorf("genre name cannot exceed 100 characters, got %d: name -> %s", len(g.Name), g.Name)
	}
	return nil
}

// MediaDirectory is a filesystem root holding indexed tracks.
// Deleting a directory deletes its tracks.
type MediaDirectory struct {
	ID        int64
	Path      string
	AddedDate time.Time
}

// Validate validates the directory fields.
func (d *MediaDirectory) Validate() error {
	if strings.TrimSpace(d.Path) == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	return nil
}

// DirectorySettings is the singleton record holding directory-level
// scan settings.
type DirectorySettings struct {
	ManualScanRequested bool
}

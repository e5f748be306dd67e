package scan

import (
	"testing"

	"github.com/dhowden/tag"
)

// fakeMetadata implements only Raw; it will panic if other tag methods
// are called.
type fakeMetadata struct {
	tag.Metadata
	raw map[string]interface{}
}

func (f fakeMetadata) Raw() map[string]interface{} { return f.raw }

func TestParseGenres(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"Rock", []string{"Rock"}},
		{" Rock ", []string{"Rock"}},
		{"Rock; Blues", []string{"Rock", "Blues"}},
		{"Rock/Blues/Jazz", []string{"Rock", "Blues", "Jazz"}},
		{"Rock, Blues", []string{"Rock", "Blues"}},
		{"Rock;;Blues", []string{"Rock", "Blues"}},
	}
	for _, c := range cases {
		got := parseGenres(c.in)
		if len(got) != len(c.want) {
			t.Errorf("%q: expected %v, got %v", c.in, c.want, got)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("%q: expected %v, got %v", c.in, c.want, got)
				break
			}
		}
	}
}

func TestRawDuration(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
		want int
	}{
		{"no frames", map[string]interface{}{}, 0},
		{"tlen milliseconds", map[string]interface{}{"TLEN": "245000"}, 245},
		{"vorbis length seconds", map[string]interface{}{"length": "180"}, 180},
		{"garbage ignored", map[string]interface{}{"TLEN": "soon"}, 0},
		{"non-string ignored", map[string]interface{}{"TLEN": 245000}, 0},
		{"negative ignored", map[string]interface{}{"length": "-5"}, 0},
	}
	for _, c := range cases {
		got := rawDuration(fakeMetadata{raw: c.raw})
		if got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, got)
		}
	}
}

func TestRawOriginalYear(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
		want int
	}{
		{"missing", map[string]interface{}{}, 0},
		{"tdor full date", map[string]interface{}{"TDOR": "1977-06-10"}, 1977},
		{"tory year only", map[string]interface{}{"TORY": "1969"}, 1969},
		{"vorbis originaldate", map[string]interface{}{"originaldate": "1984-01-01"}, 1984},
		{"too short", map[string]interface{}{"TDOR": "84"}, 0},
	}
	for _, c := range cases {
		got := rawOriginalYear(fakeMetadata{raw: c.raw})
		if got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, got)
		}
	}
}

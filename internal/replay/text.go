package replay

import (
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// Segment splits s into grapheme clusters, normalizing to NFC first when
// normalize is set.
func Segment(s string, normalize bool) []string {
	if normalize {
		s = norm.NFC.String(s)
	}
	clusters := make([]string, 0, uniseg.GraphemeClusterCount(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}
	return clusters
}

// Join concatenates clusters back into text.
func Join(clusters []string) string {
	return strings.Join(clusters, "")
}

package report

import (
	"regexp"

	"github.com/fatih/camelcase"
)

// nonIdentifier matches runs of characters that do not belong to an
// identifier, the split spec.md §3 mandates for deriving refs_kw/pkgs_kw
// from refs/pkgs.
var nonIdentifier = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// splitIdentifier first splits token on non-identifier characters (the
// spec-mandated step), then further splits each resulting run on
// camelCase boundaries so "HttpClient" contributes "Http" and "Client"
// to the summary multiset rather than one opaque blob.
func splitIdentifier(token string) []string {
	var out []string
	for _, piece := range nonIdentifier.Split(token, -1) {
		if piece == "" {
			continue
		}
		out = append(out, camelcase.Split(piece)...)
	}
	return out
}

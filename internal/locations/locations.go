// SPDX-License-Identifier: AGPL-3.0-or-later

// Package locations normalises the path-valued settings entries from
// relative to absolute before the run configuration is written.
package locations

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BIMSBbioinfo/pigx-common/internal/runctx"
	"github.com/BIMSBbioinfo/pigx-common/internal/settings"
)

// SampleSheetKey is the locations entry recorded verbatim as the sample
// sheet's absolute path.
const SampleSheetKey = "sample-sheet"

// Resolve rewrites every populated entry of the locations section to an
// absolute, normalised path anchored at join(here, dirname(sampleSheet)),
// with ~ expanded. When skip is set the entries are left as configured.
//
// The sample sheet itself is exempt from skip: its absolute path is always
// recorded, and a missing sheet is an error before anything is written.
// Likewise the annotation genome FASTA and GTF entries, when present, are
// resolved unconditionally.
func Resolve(doc settings.Document, sampleSheet, here string, skip bool, ctx *runctx.Context) error {
	sheetAbs := join(ctx.WorkDir, sampleSheet)
	if _, err := os.Stat(sheetAbs); err != nil {
		return fmt.Errorf("sample sheet %s not found", sampleSheet)
	}

	resolve := func(value string) string {
		return Resolved(value, sampleSheet, here, ctx)
	}

	locs := doc.Section("locations")
	for key, v := range locs {
		if key == SampleSheetKey {
			continue
		}
		value, ok := v.(string)
		if !ok || value == "" || skip {
			continue
		}
		locs[key] = resolve(value)
	}
	doc.Set(locs, "locations")
	doc.Set(sheetAbs, "locations", SampleSheetKey)

	// The annotation files feed rules that cannot cope with relative
	// paths, so these two entries ignore the skip flag.
	if fasta := doc.String("annotation", "primary", "genome", "fasta"); fasta != "" {
		doc.Set(resolve(fasta), "annotation", "primary", "genome", "fasta")
	}
	if gtf := doc.String("annotation", "primary", "gtf"); gtf != "" {
		doc.Set(resolve(gtf), "annotation", "primary", "gtf")
	}
	return nil
}

// Resolved returns the absolute, normalised form of a single location
// value using the same anchoring as Resolve, without touching the
// settings document or requiring the sample sheet to exist.
func Resolved(value, sampleSheet, here string, ctx *runctx.Context) string {
	base := join(here, filepath.Dir(sampleSheet))
	return filepath.Clean(join(base, ctx.ExpandUser(value)))
}

// join concatenates path elements the way the launcher always has: a later
// absolute element discards everything before it.
func join(parts ...string) string {
	out := ""
	for _, p := range parts {
		switch {
		case p == "":
			continue
		case filepath.IsAbs(p) || out == "":
			out = p
		default:
			out = filepath.Join(out, p)
		}
	}
	return filepath.Clean(out)
}

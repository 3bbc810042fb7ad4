package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/krm/centroidd/internal/dicom"
	"github.com/krm/centroidd/internal/geometry"
	"github.com/krm/centroidd/internal/report"
)

// candidateNames is the fixed list of target region names scanned against
// a structure set, in priority order. Seeds and gold (Au) markers are
// labeled 1..3 by convention, with and without a separating space.
func candidateNames() []string {
	names := make([]string, 0, 12)
	for i := 1; i <= 3; i++ {
		names = append(names,
			fmt.Sprintf("seed%d", i),
			fmt.Sprintf("seed %d", i),
			fmt.Sprintf("au%d", i),
			fmt.Sprintf("au %d", i),
		)
	}
	return names
}

// canonicalName normalizes a region name for matching: NFC form,
// whitespace trimmed, lowercased. "Seed1", "SEED1" and " seed1 " all
// canonicalize identically.
func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// displayLabel capitalizes a matched candidate for the report line:
// "seed 2" renders as "Seed 2".
func displayLabel(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// matchRegions scans the candidate list against the structure set and
// returns one report line per matched region, carrying the centroid of
// the region's point set. Regions without contour points do not count as
// matches.
//
// When nothing matches, the injected resolver gets one chance to pick
// regions from the full inventory; an abort yields ok=false.
func (p *Pipeline) matchRegions(structure *dicom.Record) ([]report.Line, bool) {
	byName := make(map[string]dicom.Region, len(structure.Regions))
	available := make([]string, 0, len(structure.Regions))
	for _, region := range structure.Regions {
		available = append(available, region.Name)
		key := canonicalName(region.Name)
		if _, exists := byName[key]; !exists {
			byName[key] = region
		}
	}

	var lines []report.Line
	for _, candidate := range candidateNames() {
		region, found := byName[canonicalName(candidate)]
		if !found {
			continue
		}
		centroid, ok := geometry.Centroid(region.Points)
		if !ok {
			slog.Warn("matched region has no contour points", "region", region.Name)
			continue
		}
		lines = append(lines, report.Line{Label: displayLabel(candidate), Position: centroid})
	}
	if len(lines) > 0 {
		return lines, true
	}

	// Zero matches: hand the full inventory to the resolver (a terminal
	// prompt in interactive deployments, auto-abort otherwise).
	chosen, ok := p.resolver.Resolve(available)
	if !ok || len(chosen) == 0 {
		return nil, false
	}
	for _, name := range chosen {
		region, found := byName[canonicalName(name)]
		if !found {
			slog.Warn("resolver chose an unknown region", "region", name)
			continue
		}
		centroid, ok := geometry.Centroid(region.Points)
		if !ok {
			slog.Warn("chosen region has no contour points", "region", region.Name)
			continue
		}
		lines = append(lines, report.Line{Label: displayLabel(region.Name), Position: centroid})
	}
	return lines, len(lines) > 0
}

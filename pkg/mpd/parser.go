// Package mpd provides parsing functionality for DASH MPD manifest data.
package mpd

import (
	"encoding/xml"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoRepresentations is returned when a manifest contains no selectable representations.
	ErrNoRepresentations = errors.New("manifest contains no representations")
	// ErrDuplicateRepresentation is returned when two representations share an ID.
	ErrDuplicateRepresentation = errors.New("duplicate representation ID")
)

// Representation is one selectable encoding of the media.
type Representation struct {
	ID        string
	Bandwidth int
}

// document mirrors the subset of the MPD schema the adaptation layer
// needs: representation IDs and their bandwidths.
type document struct {
	XMLName xml.Name `xml:"MPD"`
	Periods []struct {
		AdaptationSets []struct {
			Representations []struct {
				ID        string `xml:"id,attr"`
				Bandwidth int    `xml:"bandwidth,attr"`
			} `xml:"Representation"`
		} `xml:"AdaptationSet"`
	} `xml:"Period"`
}

// Parse extracts the selectable representations from raw MPD XML,
// ordered ascending by bandwidth (ascending quality).
func Parse(data []byte) ([]Representation, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse MPD: %w", err)
	}

	var reps []Representation
	seen := make(map[string]bool)

	for _, period := range doc.Periods {
		for _, set := range period.AdaptationSets {
			for _, rep := range set.Representations {
				if seen[rep.ID] {
					return nil, fmt.Errorf("%w: %s", ErrDuplicateRepresentation, rep.ID)
				}
				seen[rep.ID] = true
				reps = append(reps, Representation{ID: rep.ID, Bandwidth: rep.Bandwidth})
			}
		}
	}

	if len(reps) == 0 {
		return nil, ErrNoRepresentations
	}

	sort.SliceStable(reps, func(i, j int) bool {
		return reps[i].Bandwidth < reps[j].Bandwidth
	})

	return reps, nil
}

// QualityIDs returns the representation IDs in the order of the given
// slice, the opaque tokens attached to outgoing segment requests.
func QualityIDs(reps []Representation) []string {
	ids := make([]string, len(reps))
	for i, rep := range reps {
		ids[i] = rep.ID
	}
	return ids
}

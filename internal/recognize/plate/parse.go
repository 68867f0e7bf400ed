package plate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// response mirrors the JSON document printed by `alpr -j`.
type response struct {
	Version   int      `json:"version"`
	DataType  string   `json:"data_type"`
	ImgWidth  int      `json:"img_width"`
	ImgHeight int      `json:"img_height"`
	Results   []result `json:"results"`
}

type result struct {
	Plate       string      `json:"plate"`
	Confidence  float64     `json:"confidence"`
	Coordinates []point     `json:"coordinates"`
	Candidates  []candidate `json:"candidates"`
}

type candidate struct {
	Plate           string  `json:"plate"`
	Confidence      float64 `json:"confidence"`
	MatchesTemplate int     `json:"matches_template"`
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Parse decodes alpr JSON output into raw candidates. Values are trimmed
// and upper-cased; confidences are clamped to [0, 100]. Output that is not
// a JSON object is an error and yields no candidates.
func Parse(out []byte) ([]types.Candidate, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}

	var r response
	if err := json.Unmarshal(out, &r); err != nil {
		return nil, fmt.Errorf("parse alpr output: %w", err)
	}

	var cands []types.Candidate
	for _, res := range r.Results {
		region := bounds(res.Coordinates)
		alts := res.Candidates
		if len(alts) == 0 && res.Plate != "" {
			alts = []candidate{{Plate: res.Plate, Confidence: res.Confidence}}
		}
		for _, c := range alts {
			v := strings.ToUpper(strings.TrimSpace(c.Plate))
			if v == "" {
				continue
			}
			cands = append(cands, types.Candidate{
				Channel:    types.ChannelPlate,
				Value:      v,
				Confidence: recognize.ClampConfidence(c.Confidence),
				Region:     region,
			})
		}
	}
	return cands, nil
}

// Classify marks candidates at or above floor as eligible. When none
// qualify, the single highest-confidence candidate is flagged
// LowConfidence so callers can surface it without acting on it.
func Classify(cands []types.Candidate, floor float64) []types.Candidate {
	best := -1
	anyEligible := false
	for i := range cands {
		cands[i].Eligible = cands[i].Confidence >= floor
		cands[i].LowConfidence = false
		if cands[i].Eligible {
			anyEligible = true
		}
		if best < 0 || cands[i].Confidence > cands[best].Confidence {
			best = i
		}
	}
	if !anyEligible && best >= 0 {
		cands[best].LowConfidence = true
	}
	return cands
}

func bounds(pts []point) *image.Rectangle {
	if len(pts) == 0 {
		return nil
	}
	r := image.Rect(pts[0].X, pts[0].Y, pts[0].X+1, pts[0].Y+1)
	for _, p := range pts[1:] {
		r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
	}
	return &r
}

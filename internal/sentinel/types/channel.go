package types

import "strings"

// Channel identifies which sensing pipeline produced a detection.
type Channel string

const (
	ChannelPlate Channel = "license_plate"
	ChannelFace  Channel = "face"
	ChannelScan  Channel = "scanned_code"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelPlate, ChannelFace, ChannelScan:
		return true
	}
	return false
}

// Status is the outcome of an access decision.
type Status string

const (
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

var plateReplacer = strings.NewReplacer(" ", "", "-", "", ".", "", "\t", "")

// NormalizePlate upper-cases a plate string and strips the separators that
// OCR output and registry entries disagree on.
func NormalizePlate(s string) string {
	return strings.ToUpper(plateReplacer.Replace(strings.TrimSpace(s)))
}

// NormalizeFaceLabel folds a classifier label to its registry form.
func NormalizeFaceLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Package idhash derives the four stable public identifiers
// (Patient/Study/Series/Instance) from a DICOM tag summary.
//
// The hash is a plain SHA-256 over a canonical, delimiter-separated tuple
// of identifying tags — stdlib hashing is sufficient here (see DESIGN.md);
// the only requirement is that it is deterministic across runs so that
// re-ingesting the same instance hashes to the same public id and the
// ingest pipeline's deduplication works.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/kestrelhealth/pacsindex/catalog"
)

// separator can never appear in a DICOM UID or PatientID (both are limited
// to a digits/letters/dots/dashes alphabet), so it safely disambiguates
// "A"+"BC" from "AB"+"C".
const separator = "\x1f"

// Hashes holds the four public identifiers derived from one DICOM summary.
type Hashes struct {
	Patient  string
	Study    string
	Series   string
	Instance string
}

// Compute derives all four identifiers from a summary's identifying tags.
func Compute(summary catalog.DicomSummary) Hashes {
	patientID, _ := summary.Tag("PatientID")
	studyUID, _ := summary.Tag("StudyInstanceUID")
	seriesUID, _ := summary.Tag("SeriesInstanceUID")
	sopUID, _ := summary.Tag("SOPInstanceUID")

	return Hashes{
		Patient:  hashTuple(patientID),
		Study:    hashTuple(patientID, studyUID),
		Series:   hashTuple(patientID, studyUID, seriesUID),
		Instance: hashTuple(patientID, studyUID, seriesUID, sopUID),
	}
}

// ForLevel returns the identifier for a specific level.
func (h Hashes) ForLevel(level catalog.ResourceLevel) string {
	switch level {
	case catalog.Patient:
		return h.Patient
	case catalog.Study:
		return h.Study
	case catalog.Series:
		return h.Series
	default:
		return h.Instance
	}
}

func hashTuple(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, separator)))
	return hex.EncodeToString(sum[:])
}

// Package maintags decides which DICOM tags are "main" (identifying or
// descriptive) at each resource level and projects a DicomSummary down to
// just those tags.
package maintags

import "github.com/kestrelhealth/pacsindex/catalog"

// byLevel lists, per level, the DICOM keywords materialized into indexed
// storage for resources at that level.
var byLevel = map[catalog.ResourceLevel][]string{
	catalog.Patient: {
		"PatientID",
		"PatientName",
		"PatientBirthDate",
		"PatientSex",
	},
	catalog.Study: {
		"StudyInstanceUID",
		"StudyDate",
		"StudyTime",
		"StudyID",
		"AccessionNumber",
		"StudyDescription",
		"RequestedProcedureDescription",
	},
	catalog.Series: {
		"SeriesInstanceUID",
		"SeriesDate",
		"SeriesTime",
		"Modality",
		"Manufacturer",
		"StationName",
		"SeriesDescription",
		"BodyPartExamined",
		"ProtocolName",
		"SeriesNumber",
		"CardiacNumberOfImages",
		"ImagesInAcquisition",
		"NumberOfSlices",
		"NumberOfTimeSlices",
	},
	catalog.Instance: {
		"SOPInstanceUID",
		"InstanceNumber",
		"ImageIndex",
		"ImagePositionPatient",
		"ImageOrientationPatient",
		"NumberOfFrames",
		"Rows",
		"Columns",
	},
}

// Keywords returns the main-tag keywords for a level, in a stable order.
func Keywords(level catalog.ResourceLevel) []string {
	return byLevel[level]
}

// Project extracts the main tags for a level from a DicomSummary. Tags
// absent from the summary are omitted rather than stored as empty strings.
func Project(level catalog.ResourceLevel, summary catalog.DicomSummary) map[string]string {
	keywords := byLevel[level]
	out := make(map[string]string, len(keywords))
	for _, kw := range keywords {
		if v, ok := summary.Tag(kw); ok {
			out[kw] = v
		}
	}
	return out
}

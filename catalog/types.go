// Package catalog defines the data model shared by the store and index
// packages: the four-level resource hierarchy, attachments, and the
// append-only change/export logs.
package catalog

import "fmt"

// ResourceLevel is one of the four hierarchy levels. Lower numeric values
// are closer to Patient; DeleteResource's remaining-ancestor tie-break
// relies on this ordering.
type ResourceLevel int

const (
	Patient ResourceLevel = iota
	Study
	Series
	Instance
)

// String renders the level the way it appears on the wire.
func (l ResourceLevel) String() string {
	switch l {
	case Patient:
		return "Patient"
	case Study:
		return "Study"
	case Series:
		return "Series"
	case Instance:
		return "Instance"
	default:
		return fmt.Sprintf("ResourceLevel(%d)", int(l))
	}
}

// ParentLevel returns the level one step higher, and false for Patient,
// which has no parent.
func (l ResourceLevel) ParentLevel() (ResourceLevel, bool) {
	if l == Patient {
		return 0, false
	}
	return l - 1, true
}

// MetadataKind is one of the closed set of mutable metadata keys.
type MetadataKind string

const (
	MetadataReceptionDate      MetadataKind = "Instance_ReceptionDate"
	MetadataRemoteAet          MetadataKind = "Instance_RemoteAet"
	MetadataIndexInSeries      MetadataKind = "Instance_IndexInSeries"
	MetadataExpectedInstances  MetadataKind = "Series_ExpectedNumberOfInstances"
	MetadataModifiedFrom       MetadataKind = "ModifiedFrom"
	MetadataAnonymizedFrom     MetadataKind = "AnonymizedFrom"
)

// ContentKind identifies what an Attachment holds.
type ContentKind string

const (
	// ContentDicom is the one mandatory attachment every Instance has.
	ContentDicom ContentKind = "Dicom"
)

// ChangeKind is one of the ChangeEvent kinds.
type ChangeKind string

const (
	ChangeCompletedSeries  ChangeKind = "CompletedSeries"
	ChangeModifiedPatient  ChangeKind = "ModifiedPatient"
	ChangeModifiedStudy    ChangeKind = "ModifiedStudy"
	ChangeModifiedSeries   ChangeKind = "ModifiedSeries"
	ChangeModifiedInstance ChangeKind = "ModifiedInstance"
)

// PropertyKey is a process-wide GlobalProperty key.
type PropertyKey string

const (
	PropertyFlushSleep            PropertyKey = "FlushSleep"
	PropertyAnonymizationSequence PropertyKey = "AnonymizationSequence"
	PropertyModificationSequence  PropertyKey = "ModificationSequence"
)

// SeriesStatus is the completeness status computed by the completeness
// evaluator.
type SeriesStatus string

const (
	StatusComplete     SeriesStatus = "Complete"
	StatusMissing       SeriesStatus = "Missing"
	StatusInconsistent SeriesStatus = "Inconsistent"
	StatusUnknown      SeriesStatus = "Unknown"
)

// Attachment references an external blob owned by an Instance.
type Attachment struct {
	ContentKind       ContentKind
	UUID              string
	CompressedSize    int64
	UncompressedSize  int64
}

// ResourceView is the read model returned by LookupResource.
// Level-specific fields are zero-valued when not applicable.
type ResourceView struct {
	PublicID string
	Level    ResourceLevel
	MainTags map[string]string

	ParentPublicID string
	HasParent      bool

	ChildrenPublicIDs []string

	// Series-only.
	Status                    SeriesStatus
	ExpectedNumberOfInstances string
	HasExpectedNumberOfInstances bool

	// Instance-only.
	FileSize      int64
	FileUUID      string
	IndexInSeries string
}

// RemainingAncestor is the lowest-level ancestor still present after a
// cascade delete.
type RemainingAncestor struct {
	Level    ResourceLevel
	PublicID string
}

// DeleteResult is DeleteResource's return value.
type DeleteResult struct {
	Removed           bool
	RemainingAncestor *RemainingAncestor
}

// ChangeEvent is one entry in the append-only change log.
type ChangeEvent struct {
	Seq          int64
	Kind         ChangeKind
	ResourceID   string
	ResourceLevel ResourceLevel
	TimestampISO string
}

// ExportedEvent is one entry in the append-only export log.
type ExportedEvent struct {
	Seq            int64
	ResourceLevel  ResourceLevel
	PublicID       string
	RemoteModality string
	PatientDicomID string
	StudyUID       string
	SeriesUID      string
	SOPInstanceUID string
	TimestampISO   string
}

// Statistics is ComputeStatistics' return value.
type Statistics struct {
	TotalDiskSize         uint64
	TotalUncompressedSize uint64
	CountPatients         int64
	CountStudies          int64
	CountSeries           int64
	CountInstances        int64
}

// StoreOutcome is Store's sentinel result.
type StoreOutcome string

const (
	StoreSuccess      StoreOutcome = "Success"
	StoreAlreadyStored StoreOutcome = "AlreadyStored"
	StoreFailure      StoreOutcome = "Failure"
)

// DicomSummary is the subset of a DICOM instance's identifying and
// descriptive tags the ingest pipeline needs. Parsing the full DICOM tag
// map is an external collaborator's job; this is the projection the index
// consumes.
type DicomSummary struct {
	Tags map[string]string
}

// Tag looks up a tag by its DICOM keyword, e.g. "PatientID".
func (s DicomSummary) Tag(keyword string) (string, bool) {
	v, ok := s.Tags[keyword]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// AttachmentInput is one attachment supplied to Store, before the embedded
// store assigns it to a created Instance.
type AttachmentInput struct {
	ContentKind      ContentKind
	UUID             string
	CompressedSize   int64
	UncompressedSize int64
}

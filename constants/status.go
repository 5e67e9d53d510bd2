package constants

// JobStatus is the canonical lifecycle state of a document job.
type JobStatus string

// Stable values (these exact strings go over the wire).
const (
	JobStatusUploaded   JobStatus = "UPLOADED"   // accepted, extraction not started
	JobStatusProcessing JobStatus = "PROCESSING" // extraction in flight
	JobStatusReady      JobStatus = "READY"      // terminal success, text available
	JobStatusError      JobStatus = "ERROR"      // terminal failure
)

// CanTransition reports whether moving from one status to another is a legal
// edge. Forward-only, except that both terminal states may be reset to
// PROCESSING on retry.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusUploaded:
		return to == JobStatusProcessing
	case JobStatusProcessing:
		return to == JobStatusReady || to == JobStatusError
	case JobStatusReady, JobStatusError:
		return to == JobStatusProcessing
	default:
		return false
	}
}

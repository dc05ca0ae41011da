package abend

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// NewTrackingID generates a tracking id in the wire-visible format
// ABEND_{job_name}_{ULID}. The ULID suffix is time-prefixed and monotonic per
// process, so ids generated later sort later.
func NewTrackingID(jobName string) string {
	return fmt.Sprintf("ABEND_%s_%s", jobName, ulid.Make())
}

// NewAuditID generates an audit id in the format AUDIT_{ULID}.
func NewAuditID() string {
	return fmt.Sprintf("AUDIT_%s", ulid.Make())
}

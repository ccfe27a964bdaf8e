package services

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Document id prefixes.
const (
	eventIDPrefix      = "evt_"
	assignmentIDPrefix = "asg_"
	guestIDPrefix      = "gst_"
	templateIDPrefix   = "tpl_"
)

// newDocumentID returns prefix followed by a time-ordered ULID.
func newDocumentID(prefix string) string {
	return prefix + ulid.Make().String()
}

func utcNow() time.Time {
	return time.Now().UTC()
}

package snapshot

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// TimeLayout is the fixed-width creation-time prefix every snapshot name
// starts with. Lexical order of names equals creation order because the
// layout runs from coarsest to finest field.
const TimeLayout = "2006_01_02_15_04"

// ErrMalformedName reports a snapshot whose name does not begin with the
// expected time prefix. Listing such a name indicates data corruption or a
// foreign directory entry, so callers treat it as fatal rather than skipping.
var ErrMalformedName = errors.New("malformed snapshot name")

var timePrefix = regexp.MustCompile(`^[0-9]{4}_[0-9]{2}_[0-9]{2}_[0-9]{2}_[0-9]{2}`)

// ParseTime extracts the creation time from a snapshot name. Names carry
// local wall time, so the prefix is parsed in the local zone; parsing it as
// UTC would skew every age computation by the zone offset.
func ParseTime(name string) (time.Time, error) {
	m := timePrefix.FindString(name)
	if m == "" {
		return time.Time{}, fmt.Errorf("%w: %q does not start with %s", ErrMalformedName, name, TimeLayout)
	}
	t, err := time.ParseInLocation(TimeLayout, m, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedName, name, err)
	}
	return t, nil
}

// Name builds a snapshot name for a subject created at the given time.
func Name(createdAt time.Time, subject string) string {
	return createdAt.Format(TimeLayout) + "_" + subject
}

// Subject returns the subject identifier for a subvolume path: its rightmost
// path component. Trailing slashes are ignored.
func Subject(subvolPath string) string {
	return path.Base(strings.TrimRight(subvolPath, "/"))
}

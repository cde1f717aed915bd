package domain

import "regexp"

// SessionIDPattern bounds session ids accepted at the HTTP edge and used as
// file names by the file store.
var SessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidSessionID reports whether id matches SessionIDPattern.
func ValidSessionID(id string) bool { return SessionIDPattern.MatchString(id) }

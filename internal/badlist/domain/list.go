package domain

import "fmt"

// ListID identifies one of the externally curated blocklists the engine
// can consult.
type ListID uint8

const (
	// ListLinks is the list of known-bad URL substrings.
	ListLinks ListID = iota
	// ListHashes is the set of known-bad content digests.
	ListHashes
)

// String returns a stable string representation of the list id.
func (l ListID) String() string {
	switch l {
	case ListLinks:
		return "links"
	case ListHashes:
		return "hashes"
	default:
		return fmt.Sprintf("ListID(%d)", l)
	}
}

package attendance

import "errors"

var (
	// ErrAlreadyOpen means the slot already has an in-progress entry; the
	// crew must check out first.
	ErrAlreadyOpen = errors.New("already checked in")
	// ErrNoOpenEntry means there is nothing to check out of or correct.
	ErrNoOpenEntry = errors.New("no in-progress entry")
	// ErrNoMembers means the deduplicated member list came out empty.
	ErrNoMembers = errors.New("member list is empty")
	// ErrWrongPIN means the supplied correction PIN did not match.
	ErrWrongPIN = errors.New("incorrect PIN")
)

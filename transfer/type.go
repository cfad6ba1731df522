// Package transfer implements the Transfer Element protocol (spec.md §4.1):
// the pre/transfer/post state machine every register accessor derives from,
// the typed N-D buffer, decorators, and the asynchronous accessor queue.
package transfer

import (
	"github.com/google/uuid"
)

// Type indicates which public call is in progress, passed into the pre/post
// stages so an implementation can tell read from write (spec.md §3).
type Type int

const (
	Read Type = iota
	ReadNonBlocking
	Write
	WriteDestructively
)

func (t Type) String() string {
	switch t {
	case Read:
		return "read"
	case ReadNonBlocking:
		return "readNonBlocking"
	case Write:
		return "write"
	case WriteDestructively:
		return "writeDestructively"
	default:
		return "unknown"
	}
}

// ElementID is an opaque identity token, unique per accessor instance,
// comparable and hashable for free because uuid.UUID is a [16]byte array.
type ElementID uuid.UUID

func newElementID() ElementID { return ElementID(uuid.New()) }

func (id ElementID) String() string { return uuid.UUID(id).String() }

package saveport

import "context"

// Existence reports which replicas of a file are present.
type Existence struct {
	Local  bool
	Remote bool
}

// ReplicaPair is the result of reading both replicas of a file. A nil slice
// means that replica is absent (or unreadable); a present but empty slice is
// an erased file. NetworkError is set when the remote replica could not be
// checked due to a transport failure, which the reconciler uses to avoid
// resyncing against a replica it never actually saw.
type ReplicaPair struct {
	Local        []byte
	Remote       []byte
	NetworkError bool
}

// Port is the storage boundary. Implementations hold one local replica and
// optionally one remote replica of each named file. Read failures are
// surfaced as absent replicas; write and delete failures are hard errors.
type Port interface {
	Exists(ctx context.Context, name string) (Existence, error)
	Read(ctx context.Context, name string) (ReplicaPair, error)
	Write(ctx context.Context, name string, data []byte) error

	// Erase overwrites the file with an empty payload, preserving existence.
	Erase(ctx context.Context, name string) error

	// Delete removes the file outright.
	Delete(ctx context.Context, name string) error
}

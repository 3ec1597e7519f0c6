package epub

import "github.com/juju/errors"

// Sentinel errors returned by the epub package. Wrapped errors keep their
// kind, so callers test with errors.Is.
const (
	// ErrConfiguration indicates a malformed or schema-invalid collection
	// descriptor.
	ErrConfiguration = errors.ConstError("epub: invalid collection configuration")

	// ErrNotInitialized indicates a Chapter accessor was used on a chapter
	// that did not come out of a completed extraction.
	ErrNotInitialized = errors.ConstError("epub: chapter has not been initialized")

	// ErrFetch indicates a chapter source or configuration could not be
	// retrieved.
	ErrFetch = errors.ConstError("epub: fetch failed")

	// ErrParse indicates a chapter container or one of its documents could
	// not be parsed.
	ErrParse = errors.ConstError("epub: parse failed")

	// ErrDuplicateID indicates a manifest id collision in a package document.
	ErrDuplicateID = errors.ConstError("epub: duplicate manifest id")

	// ErrDanglingSpineRef indicates a spine itemref that does not name any
	// manifest item.
	ErrDanglingSpineRef = errors.ConstError("epub: spine reference without manifest item")

	// ErrNotFound indicates the requested entry does not exist in the
	// container.
	ErrNotFound = errors.ConstError("epub: entry not found in container")

	// ErrContainerSealed indicates a write to a container that has already
	// been serialized.
	ErrContainerSealed = errors.ConstError("epub: container already serialized")
)

package anvil

import "errors"

var (
	ErrContainerTooSmall      = errors.New("anvil: region container smaller than its location header")
	ErrNoChunk                = errors.New("anvil: chunk not found")
	ErrChunkIndexOutOfRange   = errors.New("anvil: chunk index out of range")
	ErrTruncatedPayload       = errors.New("anvil: chunk payload extends past end of container")
	ErrUnsupportedCompression = errors.New("anvil: unsupported compression format")
	ErrCorruptPayload         = errors.New("anvil: corrupt chunk payload")
	ErrMalformedTree          = errors.New("anvil: malformed chunk NBT")
)

// ErrorKind returns a short label for the sentinel wrapped by err, used as a report key.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoChunk):
		return "absent"
	case errors.Is(err, ErrChunkIndexOutOfRange):
		return "index"
	case errors.Is(err, ErrTruncatedPayload):
		return "truncated"
	case errors.Is(err, ErrUnsupportedCompression):
		return "compression"
	case errors.Is(err, ErrCorruptPayload):
		return "corrupt"
	case errors.Is(err, ErrMalformedTree):
		return "nbt"
	}
	return "other"
}

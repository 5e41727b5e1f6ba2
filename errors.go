package omfiles

import "github.com/scigolib/omfiles/internal/utils"

// Error kinds returned by the library. Match them with errors.Is.
var (
	// ErrUnsupportedFormat reports an unknown version, data type or compression.
	ErrUnsupportedFormat = utils.ErrUnsupportedFormat
	// ErrNotOmFile reports missing magic bytes.
	ErrNotOmFile = utils.ErrNotOmFile
	// ErrFileTooSmall reports a file shorter than its fixed structures.
	ErrFileTooSmall = utils.ErrFileTooSmall
	// ErrCorruptMetadata reports an unreadable variable record or trailer.
	ErrCorruptMetadata = utils.ErrCorruptMetadata
	// ErrCorruptIndex reports an inconsistent chunk lookup table.
	ErrCorruptIndex = utils.ErrCorruptIndex
	// ErrCorruptChunk reports chunk bytes that fail to decode.
	ErrCorruptChunk = utils.ErrCorruptChunk
	// ErrCodec reports an encode failure or unusable codec parameters.
	ErrCodec = utils.ErrCodec
	// ErrRange reports a read range outside the variable.
	ErrRange = utils.ErrRange
	// ErrShapeMismatch reports buffers or dimensions that do not agree.
	ErrShapeMismatch = utils.ErrShapeMismatch
	// ErrSequence reports a chunk written out of row-major order.
	ErrSequence = utils.ErrSequence
	// ErrClosed reports use of a closed Reader or finished Writer.
	ErrClosed = utils.ErrClosed
	// ErrDataTypeMismatch reports a typed access that does not match the
	// variable's data type.
	ErrDataTypeMismatch = utils.ErrDataTypeMismatch
	// ErrInvalidName reports a child name that is empty, contains "/" or
	// repeats a sibling's name.
	ErrInvalidName = utils.ErrInvalidName
)

// IOError wraps a failure of the underlying file, reader or writer.
type IOError = utils.IOError

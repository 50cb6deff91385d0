package proto

import (
	"errors"
	"fmt"
)

var errKeystrokeLength = errors.New("keyboard input must be exactly one character")

// ErrKind discriminates the fixed set of ways the codec or a peer can fail.
// Modeled as a closed enum rather than an exception hierarchy, same as the
// message union itself (spec §9).
type ErrKind int

const (
	ErrUnknownTag ErrKind = iota
	ErrMalformed
	ErrUnexpectedEOF
	ErrIO
	// ErrTerminalUnavailable covers raw-mode/tty acquisition failures in
	// the input handler (spec §5 "Resources").
	ErrTerminalUnavailable
	// ErrResumptionPersistence covers resume.properties read/write failures,
	// which degrade the resumption feature rather than the build itself
	// (spec §7, SPEC_FULL §4.9).
	ErrResumptionPersistence
	// ErrProtocolViolation covers a structurally valid frame that violates a
	// data-model invariant outside the codec proper (e.g. TransferEvent's
	// TransferredBytes > ContentLength, spec §3.1).
	ErrProtocolViolation
)

func (k ErrKind) String() string {
	switch k {
	case ErrUnknownTag:
		return "UnknownTag"
	case ErrMalformed:
		return "Malformed"
	case ErrUnexpectedEOF:
		return "UnexpectedEof"
	case ErrIO:
		return "Io"
	case ErrTerminalUnavailable:
		return "TerminalUnavailable"
	case ErrResumptionPersistence:
		return "ResumptionPersistence"
	case ErrProtocolViolation:
		return "ProtocolViolation"
	default:
		return "Unknown"
	}
}

// KindError wraps an error with its ErrKind for callers outside the codec
// proper (internal/resume, internal/render's terminal setup) that still want
// to participate in the errors.Is/errors.As-by-kind idiom §7 establishes.
type KindError struct {
	Kind ErrKind
	Err  error
}

func (e *KindError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *KindError) Unwrap() error  { return e.Err }

// WrapKind wraps err with kind, or returns nil if err is nil.
func WrapKind(kind ErrKind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// CodecError wraps a decode/encode failure with its kind and, where
// available, the underlying cause.
type CodecError struct {
	Kind ErrKind
	Tag  Tag
	Err  error
}

func (e *CodecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("proto: %s (tag=%d): %v", e.Kind, e.Tag, e.Err)
	}
	return fmt.Sprintf("proto: %s (tag=%d)", e.Kind, e.Tag)
}

func (e *CodecError) Unwrap() error { return e.Err }

func unknownTagErr(tag Tag) error {
	return &CodecError{Kind: ErrUnknownTag, Tag: tag}
}

func malformedErr(tag Tag, err error) error {
	return &CodecError{Kind: ErrMalformed, Tag: tag, Err: err}
}

func unexpectedEOFErr(tag Tag, err error) error {
	return &CodecError{Kind: ErrUnexpectedEOF, Tag: tag, Err: err}
}

func ioErr(tag Tag, err error) error {
	return &CodecError{Kind: ErrIO, Tag: tag, Err: err}
}

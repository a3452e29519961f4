package present

import "errors"

// Blitter errors.
var (
	// ErrNilDevice is returned when creating a blitter without a device.
	ErrNilDevice = errors.New("present: device is nil")

	// ErrNilQueue is returned when creating a blitter without a queue.
	ErrNilQueue = errors.New("present: queue is nil")

	// ErrNilRecorder is returned when a present call receives a nil
	// command recorder.
	ErrNilRecorder = errors.New("present: command recorder is nil")

	// ErrNilTargetView is returned when the destination view is nil.
	ErrNilTargetView = errors.New("present: destination view is nil")

	// ErrNilSourceView is returned when the source view is nil.
	ErrNilSourceView = errors.New("present: source view is nil")

	// ErrAlreadyPresenting is returned by BeginPresent when a present is
	// already in progress. Nested presents are a caller bug.
	ErrAlreadyPresenting = errors.New("present: BeginPresent while a present is in progress")

	// ErrNotPresenting is returned by EndPresent without a matching
	// BeginPresent. Unbalanced present pairs are a caller bug.
	ErrNotPresenting = errors.New("present: EndPresent without a matching BeginPresent")

	// ErrCursorDataSize is returned when the cursor pixel buffer does not
	// match extent times the format's byte stride.
	ErrCursorDataSize = errors.New("present: cursor data size does not match extent and format")

	// ErrCursorFormat is returned for cursor texture formats the blitter
	// cannot sample.
	ErrCursorFormat = errors.New("present: unsupported cursor texture format")

	// ErrDestroyed is returned when operating on a destroyed blitter.
	ErrDestroyed = errors.New("present: blitter has been destroyed")
)

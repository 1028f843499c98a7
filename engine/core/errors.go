package core

import (
	"errors"
)

var (
	// ErrDeviceFailure marks any non-success, non-timeout status returned by the device.
	// It is fatal for the frame loop.
	ErrDeviceFailure = errors.New("device failure")
	// ErrFenceTimeout is returned once a fence wait exhausted its configured retries.
	ErrFenceTimeout = errors.New("fence wait timed out")
	// ErrNotCompiled is returned by operations that need GPU-side resources before Compile succeeded.
	ErrNotCompiled = errors.New("descriptor not compiled")
	// ErrImageTransfer is returned when image data could not be uploaded. The descriptor stays uncompiled.
	ErrImageTransfer = errors.New("image data transfer failed")

	ErrUnknownDescriptorKind = errors.New("unknown descriptor kind")
	// ErrEmptyDataBlock is returned when a buffer descriptor is compiled with a zero sized data block.
	ErrEmptyDataBlock = errors.New("empty data block")

	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")

	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")
)

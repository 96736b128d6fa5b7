// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package storage

import (
	"errors"
	"fmt"

	"github.com/bskylab/feedgen/internal/metrics"
)

// StorageError wraps an infrastructure failure with the operation that
// raised it. All storage adapters surface failures through this type.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err for the given operation and counts it.
func NewStorageError(op string, err error) *StorageError {
	metrics.StorageErrors.WithLabelValues(op).Inc()
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

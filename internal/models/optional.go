// Feedgen - Personalized Feed Ranking for Social-Media Field Experiments
// Copyright 2026 Feedgen Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bskylab/feedgen

package models

// Opt is an optional value: either Present(value) or Missing.
// The zero value is Missing.
type Opt[T any] struct {
	value   T
	present bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, present: true}
}

// None returns a missing Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Present reports whether a value is set.
func (o Opt[T]) Present() bool {
	return o.present
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.present
}

// Or returns the value if present, otherwise def.
func (o Opt[T]) Or(def T) T {
	if o.present {
		return o.value
	}
	return def
}

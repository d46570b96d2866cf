// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// auth engine to distinguish between different failure scenarios without
// depending on driver-specific error strings. For example,
// ErrEmailExists and ErrUsernameExists surface MySQL duplicate-key
// violations on the two unique user columns, while ErrNotFound is the
// single "no such row / no such key" signal shared by the MySQL and
// Redis backed stores.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no record. The Redis
// backed OTP store also maps an expired key onto this error, since an
// expired code is indistinguishable from one that was never issued.
var ErrNotFound = errors.New("record not found")

// ErrEmailExists is returned when an insert would violate the unique
// email index on the users table.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when an insert would violate the unique
// username index on the users table.
var ErrUsernameExists = errors.New("username already exists")

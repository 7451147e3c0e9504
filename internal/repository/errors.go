package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a conditional insert loses to an existing
// record, e.g. a second vote ledger entry for the same (ballot, user) pair
var ErrDuplicate = errors.New("record already exists")

package repository

import "errors"

// ErrNoRowsAffected signals that a scoped update matched no rows.
var ErrNoRowsAffected = errors.New("no rows affected")

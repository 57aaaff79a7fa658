package model

import (
	"errors"
	"time"
)

// Protocol constants shared by the encoders and handlers.
const (
	PageSize = 10

	// LevelSalt is appended to every integrity and download checksum input.
	LevelSalt = "xI25fpAapCQg"
	// CommonSecret is the static secret the client sends with read-only requests.
	CommonSecret = "Wmfd2893gb7"

	// Wire sentinels.
	RespFailure       = "-1"
	RespAuthFailure   = "-11"
	RespEmptyComments = "#0:0:0"
)

// Shared defaults used by the server binary and tests.
const (
	DefaultQueryTimeout          = 30 * time.Second
	DefaultSongLookupConcurrency = 8
	DefaultLevelDataDir          = "./data/levels"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

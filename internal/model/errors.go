package model

import "github.com/rotisserie/eris"

// Fatal input errors. Parsers wrap these so callers can match with eris.Is.
var (
	// ErrMalformedDrawing means the boundary source could not be parsed.
	ErrMalformedDrawing = eris.New("malformed drawing")
	// ErrInvalidRecord means a dataset row or header could not be coerced.
	ErrInvalidRecord = eris.New("invalid record")
)

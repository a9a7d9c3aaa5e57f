package tabledef

import "errors"

var (
	ErrFailedToReadFile   = errors.New("failed to read table file")
	ErrFailedToParseYAML  = errors.New("failed to parse YAML table")
	ErrFailedToEncodeYAML = errors.New("failed to encode YAML table")
	ErrUnknownAction      = errors.New("unknown action")
	ErrUnknownGuard       = errors.New("unknown guard")
	ErrDuplicateHook      = errors.New("hook registered twice")
)

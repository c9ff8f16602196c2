package enex2all

import "errors"

// Sentinel errors for library operations.
var (
	ErrNoFormats      = errors.New("no output formats selected")
	ErrInvalidFormat  = errors.New("invalid output format")
	ErrNilNote        = errors.New("note cannot be nil")
	ErrEmptyTargetDir = errors.New("note target directory cannot be empty")
	ErrArchiveOpen    = errors.New("failed to open archive")
	ErrNoArchives     = errors.New("no enex archives found")
	ErrServiceInit    = errors.New("failed to initialize conversion service")
)

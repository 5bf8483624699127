package render

import (
	"errors"
	"fmt"
)

// Error kinds partition render failures by how they propagate. Only
// input and encode errors abort a render; everything else is contained
// at the component that raised it and degrades the output instead.
type ErrorKind int

const (
	// KindInput marks missing or invalid template fields and missing
	// required inputs. Fatal.
	KindInput ErrorKind = iota
	// KindAssetFetch marks a download timeout or failure. Recovered by
	// substituting a placeholder clip.
	KindAssetFetch
	// KindEffect marks bad effect params or a runtime failure inside an
	// effect. Recovered by skipping the effect.
	KindEffect
	// KindEncode marks a non-zero ffmpeg exit. Fatal.
	KindEncode
	// KindMix marks an audio mixing failure. Recovered by degrading to
	// narration-only audio.
	KindMix
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindAssetFetch:
		return "asset_fetch"
	case KindEffect:
		return "effect"
	case KindEncode:
		return "encode"
	case KindMix:
		return "mix"
	default:
		return "unknown"
	}
}

// Error carries a failure with its taxonomy kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether this error kind aborts the render.
func (e *Error) Fatal() bool {
	return e.Kind == KindInput || e.Kind == KindEncode
}

func inputErr(format string, args ...any) error {
	return &Error{Kind: KindInput, Err: fmt.Errorf(format, args...)}
}

func encodeErr(err error) error {
	return &Error{Kind: KindEncode, Err: err}
}

// KindOf extracts the taxonomy kind from err, or ok=false if err is not
// a render error.
func KindOf(err error) (ErrorKind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

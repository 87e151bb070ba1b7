package wire

import "errors"

// errUnhandledResponse mirrors the source's P_BE_FAIL_UNHANDLEDRES: a line
// that parses as neither a known status code nor a plausible continuation.
var errUnhandledResponse = errors.New("wire: unhandled response")

// errTrailingData mirrors P_BE_FAIL_TRAILINGDATA: a value's byte count was
// satisfied but the two bytes following it were not "\r\n", meaning the
// backend and this parser have desynced on framing.
var errTrailingData = errors.New("wire: trailing data")

// IsUnhandled reports whether err is the "response did not match any known
// status" classification failure.
func IsUnhandled(err error) bool { return errors.Is(err, errUnhandledResponse) }

// IsTrailingData reports whether err is the framing-desync classification
// failure.
func IsTrailingData(err error) bool { return errors.Is(err, errTrailingData) }

package atcodec

import "errors"

var errTruncated = errors.New("atcodec: truncated input")

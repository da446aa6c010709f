package cli

import "errors"

var errDifferences = errors.New("datasets differ")

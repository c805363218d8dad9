// SPDX-License-Identifier: MIT

package parallel

import "errors"

// ErrBadBlockSize is returned when a block size is not positive.
var ErrBadBlockSize = errors.New("parallel: block size must be positive")

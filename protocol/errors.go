package protocol

import "errors"

// ErrQuorumTimeout indicates the caller's deadline elapsed before t valid
// shares were collected. Recoverable at the orchestration layer by
// soliciting more servers or retrying with an extended deadline; the core
// performs no retries itself.
var ErrQuorumTimeout = errors.New("quorum timeout")

package parser

import (
	"github.com/gnana997/esmfix/pkg/util"
)

// getDefaultPoolSize returns the default pool size based on CPU count.
//
// Delegates to util.GetOptimalPoolSize() so the parser pools stay in step
// with the rewrite worker pool: a worker must never block waiting for a
// parser while other workers sit idle.
func getDefaultPoolSize() int {
	return util.GetOptimalPoolSize()
}

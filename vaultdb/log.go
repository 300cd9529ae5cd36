package vaultdb

import (
	"github.com/btcsuite/btclog/v2"
)

// Subsystem is the logging subsystem tag of this package.
const Subsystem = "VDB"

// log is a logger that is initialized with no output filters. This means the
// package will not perform any logging by default until the caller requests
// it.
var log = btclog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}

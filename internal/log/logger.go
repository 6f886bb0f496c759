package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var current atomic.Pointer[zap.Logger]

// Init builds the process logger (JSON in prod, console otherwise) and installs it globally.
func Init(prod bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if prod {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	current.Store(l)
	zap.ReplaceGlobals(l)
	return l, nil
}

// L returns the installed logger, or a no-op logger before Init.
func L() *zap.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Package compiler owns the single compiler session: one IRContext,
// one analysis cache, synchronous and single-threaded, with no
// cancellation or resumption semantics.
package compiler

import (
	"github.com/sirupsen/logrus"

	"kansoc/internal/ir"
)

// Session exclusively owns one ir.Context for the lifetime of a single
// compilation. Passes borrow it mutably one at a time; the session is
// discarded, not reused, once Compile returns.
type Session struct {
	ctx *ir.Context
	log *logrus.Logger
}

func NewSession(ctx *ir.Context, log *logrus.Logger) *Session {
	if log == nil {
		log = logrus.New()
	}
	return &Session{ctx: ctx, log: log}
}

func (s *Session) Context() *ir.Context { return s.ctx }

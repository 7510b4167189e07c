package model

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a Graph.
type Option func(*options) error

type options struct {
	compiler     Compiler
	regenerator  Regenerator
	observers    []Observer
	logger       *zap.Logger
	historyLimit int
	newID        func() ID
}

func defaultOptions() *options {
	return &options{
		logger: zap.NewNop(),
		newID:  func() ID { return ID(uuid.NewString()) },
	}
}

// WithCompiler sets the relation compiler.
func WithCompiler(c Compiler) Option {
	return func(o *options) error {
		o.compiler = c
		return nil
	}
}

// WithRegenerator sets the unit regenerator called after commit, undo and redo.
func WithRegenerator(r Regenerator) Option {
	return func(o *options) error {
		o.regenerator = r
		return nil
	}
}

// WithObserver adds an observer.
func WithObserver(obs Observer) Option {
	return func(o *options) error {
		if obs == nil {
			return errors.New("casegen: nil observer")
		}
		o.observers = append(o.observers, obs)
		return nil
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) error {
		if l == nil {
			l = zap.NewNop()
		}
		o.logger = l
		return nil
	}
}

// WithHistoryLimit bounds the number of undoable transactions. Zero keeps
// every transaction.
func WithHistoryLimit(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("casegen: negative history limit")
		}
		o.historyLimit = n
		return nil
	}
}

// WithIDGenerator replaces the random UUID identities.
func WithIDGenerator(fn func() ID) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("casegen: nil id generator")
		}
		o.newID = fn
		return nil
	}
}

// Package guard decides who may run which ledger operation.
package guard

import (
	"context"
	"errors"

	"github.com/semanticallynull/bikeledger/store"
)

var (
	ErrNotAuthorized = errors.New("not authorized")
	ErrInvalidOwner  = errors.New("invalid registry owner")
)

// Call carries the attributed caller of one operation and the logical clock
// value it executes at. Now is read once per operation.
type Call struct {
	Caller string
	Now    uint64
}

// Policy is the set of subjects allowed to run an operation.
type Policy uint8

const (
	// Owner is the single registry owner.
	Owner Policy = 1 << iota
	// ResourceOwner is the identity recorded as owner on the target record.
	ResourceOwner
	// Self operations are keyed by the caller and only touch its own record.
	Self
	// Anyone is any identified caller.
	Anyone
)

// NeedsRecord reports whether the check has to wait until the target record
// has been looked up.
func (p Policy) NeedsRecord() bool {
	return p&ResourceOwner != 0
}

const ownerKey = "registry-owner"

type Guard struct {
	s        *store.Store
	settings *store.Table[string, string]
}

func New(s *store.Store) *Guard {
	return &Guard{
		s:        s,
		settings: store.NewTable[string, string](s, "settings"),
	}
}

// Bootstrap stores owner as registry owner unless one is already recorded.
func (g *Guard) Bootstrap(ctx context.Context, owner string) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	return g.s.Update(ctx, "bootstrapOwner", func() error {
		if !g.settings.Has(ownerKey) {
			g.settings.Put(ownerKey, owner)
		}
		return nil
	})
}

// SetOwner hands the registry over to newOwner. Only the current owner may
// do this.
func (g *Guard) SetOwner(ctx context.Context, call Call, newOwner string) error {
	return g.s.Update(ctx, "setRegistryOwner", func() error {
		if !g.Allow(Owner, call.Caller, "") {
			return ErrNotAuthorized
		}
		if newOwner == "" {
			return ErrInvalidOwner
		}
		g.settings.Put(ownerKey, newOwner)
		return nil
	})
}

func (g *Guard) Owner() string {
	var owner string
	g.s.View(func() {
		owner, _ = g.settings.Get(ownerKey)
	})
	return owner
}

// Allow evaluates p for caller. resourceOwner is the owner recorded on the
// target record, empty when the policy does not involve one. It reads the
// stored owner without locking and is meant to run inside a store operation.
func (g *Guard) Allow(p Policy, caller, resourceOwner string) bool {
	if caller == "" {
		return false
	}
	if p&(Anyone|Self) != 0 {
		return true
	}
	if p&Owner != 0 {
		if owner, ok := g.settings.Get(ownerKey); ok && owner == caller {
			return true
		}
	}
	if p&ResourceOwner != 0 && resourceOwner != "" && resourceOwner == caller {
		return true
	}
	return false
}

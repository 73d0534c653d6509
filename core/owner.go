package core

import (
	"github.com/axiomesh/ballot/collection"
	"github.com/axiomesh/ballot/store"
	"github.com/pkg/errors"
)

// OwnerGuard holds the single identity allowed to submit proposals and
// register voters.
type OwnerGuard struct {
	owner *collection.Item[string]
}

func NewOwnerGuard(owner *collection.Item[string]) *OwnerGuard {
	return &OwnerGuard{owner: owner}
}

// Initialize records caller as owner. It succeeds once per store.
func (g *OwnerGuard) Initialize(kv store.KV, caller string) error {
	if caller == "" {
		return errors.Wrap(ErrUnauthorized, "empty caller")
	}
	exists, err := g.owner.Exists(kv)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	return g.owner.Save(kv, caller)
}

func (g *OwnerGuard) Owner(kv store.KV) (string, error) {
	owner, err := g.owner.Load(kv)
	if errors.Is(err, collection.ErrNotFound) {
		return "", errors.Wrap(ErrUnauthorized, "owner not initialized")
	}
	return owner, err
}

func (g *OwnerGuard) RequireOwner(kv store.KV, caller string) error {
	owner, err := g.Owner(kv)
	if err != nil {
		return err
	}
	if caller != owner {
		return errors.Wrapf(ErrUnauthorized, "%s is not the owner", caller)
	}
	return nil
}

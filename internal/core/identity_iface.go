package core

import "github.com/dkeye/voicecall/internal/domain"

// IdentityProvider exposes the signed-in user, if any.
type IdentityProvider interface {
	Identity() (domain.Identity, bool)
}

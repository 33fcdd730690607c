package browser

import (
	"reflect"

	"github.com/starford/databrowser/internal/keys"
)

// Identity tells where a payload is registered.
type Identity struct {
	Container int
	Category  keys.Category
	ID        int
}

// Identify returns the registration of a primary payload. Payloads carry no
// back-references; the browser owns this table.
func (b *Browser) Identify(object any) (Identity, bool) {
	if !identifiable(object) {
		return Identity{}, false
	}
	id, ok := b.identities[object]
	return id, ok
}

// claimIdentity records where object lives. A payload may be registered under
// one primary key only.
func (b *Browser) claimIdentity(object any, ident Identity) error {
	if !identifiable(object) {
		return nil
	}
	if prev, ok := b.identities[object]; ok && prev != ident {
		return b.violation(&ContractError{
			Op:        "register payload",
			Container: ident.Container,
			Table:     ident.Category.String(),
			ID:        ident.ID,
			Reason:    "payload already registered as " + prev.Category.String(),
		})
	}
	b.identities[object] = ident
	return nil
}

func (b *Browser) releaseIdentity(object any) {
	if identifiable(object) {
		delete(b.identities, object)
	}
}

// identifiable reports whether object can key the identity table. Only
// pointer payloads have a stable identity.
func identifiable(object any) bool {
	if object == nil {
		return false
	}
	return reflect.TypeOf(object).Kind() == reflect.Pointer
}

package vsm

import (
	"github.com/google/uuid"

	"vsmrt/markup"
)

// Relations records which collection a faulted in object is parented to.
// Objects never point at their owner, ownership is looked up here.
type Relations struct {
	owners map[*markup.Object]uuid.UUID
}

func NewRelations() *Relations {
	return &Relations{owners: make(map[*markup.Object]uuid.UUID)}
}

func (r *Relations) Parent(child *markup.Object, owner uuid.UUID) {
	r.owners[child] = owner
}

func (r *Relations) Unparent(child *markup.Object) {
	delete(r.owners, child)
}

func (r *Relations) Owner(child *markup.Object) (uuid.UUID, bool) {
	id, ok := r.owners[child]
	return id, ok
}

func (r *Relations) Len() int {
	return len(r.owners)
}

// Release unparents everything owner holds.
func (r *Relations) Release(owner uuid.UUID) {
	for child, id := range r.owners {
		if id == owner {
			delete(r.owners, child)
		}
	}
}

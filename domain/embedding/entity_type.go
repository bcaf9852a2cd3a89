package embedding

import "fmt"

// EntityType names the kind of source record a set of embeddings belongs to.
// The set is closed: indexing requests carrying an unknown type are rejected
// before any work happens.
type EntityType string

// EntityType values.
const (
	EntityTypeDocument    EntityType = "document"
	EntityTypeCase        EntityType = "case"
	EntityTypeContract    EntityType = "contract"
	EntityTypeClause      EntityType = "clause"
	EntityTypeDocketEntry EntityType = "docket_entry"
)

// knownEntityTypes is the closed set of valid entity types.
var knownEntityTypes = map[EntityType]struct{}{
	EntityTypeDocument:    {},
	EntityTypeCase:        {},
	EntityTypeContract:    {},
	EntityTypeClause:      {},
	EntityTypeDocketEntry: {},
}

// ParseEntityType validates a raw string against the closed entity type set.
func ParseEntityType(raw string) (EntityType, error) {
	t := EntityType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", raw)
	}
	return t, nil
}

// Valid reports whether the entity type belongs to the closed set.
func (t EntityType) Valid() bool {
	_, ok := knownEntityTypes[t]
	return ok
}

// String returns the entity type as a string.
func (t EntityType) String() string { return string(t) }

package graph

// NonFollowers returns the entities in following whose ID is absent from the
// ID set of followers, preserving the relative order of following. Entities
// with an empty ID are dropped outright: they cannot be matched by identity
// and must never be handed to a mutation run.
func NonFollowers(following, followers []Entity) []Entity {
	ids := make(map[string]struct{}, len(followers))
	for _, e := range followers {
		if e.ID == "" {
			continue
		}
		ids[e.ID] = struct{}{}
	}

	out := make([]Entity, 0, len(following))
	for _, e := range following {
		if e.ID == "" {
			continue
		}
		if _, ok := ids[e.ID]; !ok {
			out = append(out, e)
		}
	}
	return out
}

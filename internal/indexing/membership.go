package indexing

// Membership set math. The remote knowledge base service only supports
// whole-set creation, so every mutation is expressed as "current membership
// in, next membership out". Both operations are idempotent per id and keep
// a deterministic order: existing members first, in their current order,
// then additions in caller-supplied order.

// ResolveAdd returns current ∪ requested. Ids already present are no-ops.
func ResolveAdd(current, requested []string) []string {
	next := make([]string, 0, len(current)+len(requested))
	seen := make(map[string]struct{}, len(current)+len(requested))

	for _, id := range current {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	for _, id := range requested {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	return next
}

// ResolveRemove returns current − requested, preserving the current order.
// Ids not present are no-ops.
func ResolveRemove(current, requested []string) []string {
	drop := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		drop[id] = struct{}{}
	}

	next := make([]string, 0, len(current))
	seen := make(map[string]struct{}, len(current))
	for _, id := range current {
		if _, ok := drop[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	return next
}

// intersect returns the requested ids that are present in current, in
// requested order, deduplicated.
func intersect(current, requested []string) []string {
	present := make(map[string]struct{}, len(current))
	for _, id := range current {
		present[id] = struct{}{}
	}

	out := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// subtractSet returns the requested ids that are NOT present in current, in
// requested order, deduplicated.
func subtractSet(requested, current []string) []string {
	present := make(map[string]struct{}, len(current))
	for _, id := range current {
		present[id] = struct{}{}
	}

	out := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		if _, ok := present[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package catalog

import "strings"

// FuzzyCutoff is the minimum LCS-ratio similarity required for a fuzzy
// match to count. High on purpose: low cutoffs let unrelated families
// (glm/gemini, cursor/claude-code) collide.
const FuzzyCutoff = 0.85

// entry is the common shape resolve() needs regardless of whether it's
// walking the model or the client table.
type entry struct {
	id      string
	aliases []string
}

// ResolveModel resolves a raw, user-supplied model string to its canonical
// ModelSpec, or ok=false if nothing matches closely enough.
func ResolveModel(raw string) (ModelSpec, bool) {
	entries := make([]entry, len(Models))
	byID := make(map[string]*ModelSpec, len(Models))
	for i := range Models {
		entries[i] = entry{id: Models[i].ID, aliases: Models[i].Aliases}
		byID[Models[i].ID] = &Models[i]
	}
	id, ok := resolve(raw, entries)
	if !ok {
		return ModelSpec{}, false
	}
	return *byID[id], true
}

// ResolveClient resolves a raw, user-supplied client string to its
// canonical ClientSpec, or ok=false if nothing matches closely enough.
func ResolveClient(raw string) (ClientSpec, bool) {
	entries := make([]entry, len(Clients))
	byID := make(map[string]*ClientSpec, len(Clients))
	for i := range Clients {
		entries[i] = entry{id: Clients[i].ID, aliases: Clients[i].Aliases}
		byID[Clients[i].ID] = &Clients[i]
	}
	id, ok := resolve(raw, entries)
	if !ok {
		return ClientSpec{}, false
	}
	return *byID[id], true
}

// resolve implements the five-step lookup: normalize, exact id, exact
// alias, substring (both directions), then fuzzy LCS-ratio with a high
// cutoff to keep cross-family strings from colliding.
func resolve(raw string, entries []entry) (string, bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if norm == "" {
		return "", false
	}

	for _, e := range entries {
		if e.id == norm {
			return e.id, true
		}
	}

	for _, e := range entries {
		for _, a := range e.aliases {
			if a == norm {
				return e.id, true
			}
		}
	}

	for _, e := range entries {
		if strings.Contains(norm, e.id) || strings.Contains(e.id, norm) {
			return e.id, true
		}
	}
	for _, e := range entries {
		for _, a := range e.aliases {
			if strings.Contains(norm, a) || strings.Contains(a, norm) {
				return e.id, true
			}
		}
	}

	bestID := ""
	bestScore := 0.0
	for _, e := range entries {
		keys := append([]string{e.id}, e.aliases...)
		for _, k := range keys {
			score := lcsRatio(norm, k)
			if score > bestScore {
				bestScore = score
				bestID = e.id
			}
		}
	}
	if bestScore >= FuzzyCutoff {
		return bestID, true
	}
	return "", false
}

// lcsRatio is 2 * len(longest common subsequence) / (len(a) + len(b)), the
// quantity Python difflib.SequenceMatcher.ratio() approximates.
func lcsRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	l := lcsLength(a, b)
	return 2.0 * float64(l) / float64(len(a)+len(b))
}

func lcsLength(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

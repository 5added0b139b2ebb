// Package profile resolves a raw agent handshake payload into a normalized
// profile, using internal/catalog to look up the declared model and client.
package profile

import "github.com/midos-mcp/midos-mcp/internal/catalog"

// Tier is the caller's declared access tier.
type Tier string

const (
	TierCommunity Tier = "community"
	TierPaid      Tier = "paid"
	TierPremium   Tier = "premium"
	TierAdmin     Tier = "admin"
	TierOwner     Tier = "owner"
)

// AgentProfile is the raw, self-reported handshake payload. Every field is
// optional.
type AgentProfile struct {
	Model         string
	ContextWindow int
	Client        string
	Languages     []string
	Frameworks    []string
	Platform      string
	ProjectGoal   string
	Tier          Tier
}

// TierLabel buckets an effective context window into a coarse size class.
type TierLabel string

const (
	TierSmall  TierLabel = "small"
	TierMedium TierLabel = "medium"
	TierLarge  TierLabel = "large"
)

const (
	smallContextCeiling  = 32000
	mediumContextCeiling = 128000

	defaultEffectiveContext = 128000
	maxEffectiveContext     = 10000000
)

// ResolvedProfile is an AgentProfile after catalog resolution, carrying the
// computed effective context window and its tier label.
type ResolvedProfile struct {
	Raw              AgentProfile
	Model            catalog.ModelSpec
	ModelResolved    bool
	Client           catalog.ClientSpec
	ClientResolved   bool
	EffectiveContext int
	TierLabel        TierLabel
}

// Resolve looks up raw.Model and raw.Client against the catalogs and
// computes the effective context window and its tier label.
func Resolve(raw AgentProfile) ResolvedProfile {
	resolved := ResolvedProfile{Raw: raw}

	if raw.Model != "" {
		if spec, ok := catalog.ResolveModel(raw.Model); ok {
			resolved.Model = spec
			resolved.ModelResolved = true
		}
	}
	if raw.Client != "" {
		if spec, ok := catalog.ResolveClient(raw.Client); ok {
			resolved.Client = spec
			resolved.ClientResolved = true
		}
	}

	resolved.EffectiveContext = effectiveContext(raw, resolved)
	resolved.TierLabel = tierLabel(resolved.EffectiveContext)

	return resolved
}

// effectiveContext is the minimum of whichever of {declared context window,
// resolved model's context window, resolved client's max context} are
// nonzero, floored at defaultEffectiveContext and capped at
// maxEffectiveContext.
func effectiveContext(raw AgentProfile, resolved ResolvedProfile) int {
	var candidates []int
	if raw.ContextWindow > 0 {
		candidates = append(candidates, raw.ContextWindow)
	}
	if resolved.ModelResolved && resolved.Model.ContextWindow > 0 {
		candidates = append(candidates, resolved.Model.ContextWindow)
	}
	if resolved.ClientResolved && resolved.Client.MaxContext > 0 {
		candidates = append(candidates, resolved.Client.MaxContext)
	}

	if len(candidates) == 0 {
		return defaultEffectiveContext
	}

	min := candidates[0]
	for _, c := range candidates[1:] {
		if c < min {
			min = c
		}
	}

	if min < defaultEffectiveContext {
		min = defaultEffectiveContext
	}
	if min > maxEffectiveContext {
		min = maxEffectiveContext
	}
	return min
}

func tierLabel(effectiveContext int) TierLabel {
	switch {
	case effectiveContext <= smallContextCeiling:
		return TierSmall
	case effectiveContext <= mediumContextCeiling:
		return TierMedium
	default:
		return TierLarge
	}
}

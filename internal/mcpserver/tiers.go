package mcpserver

import (
	merrors "github.com/midos-mcp/midos-mcp/internal/errors"
	"github.com/midos-mcp/midos-mcp/internal/gate"
)

// Tool tier labels, matching the dispatcher table. "admin" has no direct
// gate.Tier counterpart, so it is mapped onto the highest existing tier,
// gate.TierTeam.
const (
	tierFree  = "free"
	tierDev   = "dev"
	tierPro   = "pro"
	tierAdmin = "admin"
)

var tierRank = map[string]int{
	string(gate.TierFree): 0,
	string(gate.TierDev):  1,
	string(gate.TierPro):  2,
	string(gate.TierTeam): 3,
}

var toolTierRank = map[string]int{
	tierFree:  0,
	tierDev:   1,
	tierPro:   2,
	tierAdmin: 3,
}

// enforceToolTier rejects a call when the Gate-resolved tier doesn't meet a
// tool's declared minimum, catching cases the Gate's free/premium split
// alone can't (a dev-tier key calling a pro-only or admin-only tool).
func enforceToolTier(toolTier string, decision gate.Decision) error {
	required, ok := toolTierRank[toolTier]
	if !ok || required == 0 {
		return nil
	}
	held := tierRank[string(decision.Tier)]
	if held >= required {
		return nil
	}
	return merrors.New(merrors.ErrCodeTierForbidden, "this tool requires "+toolTier+" tier", nil).
		WithDetail("tool_tier", toolTier).
		WithSuggestion("upgrade your tier with 'midos-mcp keys generate --tier " + toolTier + "'")
}

func invalidParamsError(message string) error {
	return merrors.New(merrors.ErrCodeInvalidInput, message, nil)
}

package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
)

const skillResourcePrefix = "resource://skill/"

type resourceReadParams struct {
	URI string `json:"uri"`
}

type resourceReadResult struct {
	Contents []resourceContent `json:"contents"`
}

type resourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	Text     string `json:"text"`
}

// handleResourcesRead implements resource://skill/{name}: reject unsafe
// names, resolve under the skills root, and truncate for unauthenticated
// callers, mirroring get_skill's rules but addressed by resource URI
// instead of a tool call.
func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (resourceReadResult, error) {
	var p resourceReadParams
	if err := json.Unmarshal(params, &p); err != nil {
		return resourceReadResult{}, invalidParamsError("malformed resources/read params")
	}
	if !strings.HasPrefix(p.URI, skillResourcePrefix) {
		return resourceReadResult{}, invalidParamsError("unsupported resource uri")
	}
	name := strings.TrimPrefix(p.URI, skillResourcePrefix)

	body, err := readSkillBody(s.deps.SkillsDir, name)
	if err != nil {
		return resourceReadResult{}, err
	}
	if !isAuthenticated(ctx) {
		body = truncateForAnonymous(body, skillAnonymousCharLimit)
	}

	return resourceReadResult{Contents: []resourceContent{{URI: p.URI, MIMEType: "text/markdown", Text: body}}}, nil
}

func (s *Server) handleResourcesReadDispatch(ctx context.Context, params json.RawMessage) (any, *rpcError) {
	result, err := s.handleResourcesRead(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

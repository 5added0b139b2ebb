package mcpserver

import (
	"context"
	"os"
)

// handleGetDoc builds a get_protocol/get_eureka/get_truth handler: return a
// document's content by canonical name with case-insensitive fallback.
func handleGetDoc(dir string) ToolHandler {
	return func(_ context.Context, args map[string]any) (string, error) {
		name, _ := args["name"].(string)
		if name == "" {
			return "", invalidParamsError("name is required")
		}
		path, err := findCaseInsensitive(dir, name)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errNotFound
		}
		return string(data), nil
	}
}

package mcpserver

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
)

// ServeStdio runs the dispatcher over line-delimited JSON on in/out, one
// JSON-RPC frame per line, until in is exhausted or ctx is canceled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	headers := http.Header{}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	writer := bufio.NewWriter(out)
	defer writer.Flush()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.Handle(ctx, headers, append([]byte(nil), line...))
		if _, err := writer.Write(resp); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("stdio transport read error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

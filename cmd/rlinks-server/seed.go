package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/links"
)

// seedLinks shortens every non-blank line of r as the public owner. Lines
// starting with # are comments. Invalid URLs are logged and skipped; any
// other failure stops the run.
func seedLinks(ctx context.Context, svc *links.Service, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	seeded := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		link, err := svc.Transform(ctx, line, auth.AnonymousOwner())
		if err != nil {
			if errx.KindOf(err) != errx.Invalid {
				return seeded, fmt.Errorf("seed %q: %w", line, err)
			}
			slog.WarnContext(ctx, "skipping seed url", "url", line, "err", err)
			continue
		}
		slog.DebugContext(ctx, "seeded link", "url", link.URL, "short_key", link.ShortKey)
		seeded++
	}
	return seeded, scanner.Err()
}

package assemble

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"vybe/internal/store"
)

// resolveActive maps open document URIs to store keys of the form
// rootID/relative/path. Any failure yields an empty set.
func resolveActive(ctx context.Context, docs OpenDocuments, r store.Reader, workspaceID string, logger *slog.Logger) map[string]bool {
	active := make(map[string]bool)
	if docs == nil {
		return active
	}
	uris, err := docs.OpenDocuments(ctx)
	if err != nil {
		logger.Debug("open documents unavailable", "error", err)
		return active
	}
	if len(uris) == 0 {
		return active
	}
	roots, err := r.ListRoots(ctx, workspaceID)
	if err != nil {
		logger.Warn("list roots failed", "error", err)
		return active
	}

	type rootPath struct {
		id   string
		path string
	}
	resolved := make([]rootPath, 0, len(roots))
	for _, root := range roots {
		p, ok := uriToPath(root.URI)
		if !ok {
			logger.Debug("skipping root with unusable uri", "root", root.ID, "uri", root.URI)
			continue
		}
		resolved = append(resolved, rootPath{id: root.ID, path: p})
	}

	for _, raw := range uris {
		p, ok := uriToPath(raw)
		if !ok {
			continue
		}
		for _, root := range resolved {
			if rel, ok := relativeTo(root.path, p); ok {
				active[root.id+"/"+rel] = true
				break
			}
		}
	}
	return active
}

// uriToPath converts a file URI to a cleaned, slash-separated filesystem
// path. A bare path with no scheme is accepted as is.
func uriToPath(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	var p string
	switch strings.ToLower(u.Scheme) {
	case "file":
		p = u.Path
		if u.Host != "" && u.Host != "localhost" {
			p = "//" + u.Host + p
		}
	case "":
		p = u.Path
	default:
		if !isDriveLetter(u.Scheme) {
			return "", false
		}
		// "C:\dir" parses as scheme "c".
		p = raw
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) >= 3 && p[0] == '/' && isDriveLetter(p[1:2]) && p[2] == ':' {
		p = p[1:]
	}
	if len(p) >= 2 && isDriveLetter(p[:1]) && p[1] == ':' {
		p = strings.ToLower(p[:1]) + p[1:]
	}
	if p == "" {
		return "", false
	}
	unc := strings.HasPrefix(p, "//")
	p = path.Clean(p)
	if unc {
		p = "/" + p
	}
	return p, true
}

func isDriveLetter(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// relativeTo returns p relative to root when root is a prefix of p at a
// path boundary.
func relativeTo(root, p string) (string, bool) {
	if root == "/" {
		rel := strings.TrimPrefix(p, "/")
		return rel, rel != "" && rel != p
	}
	root = strings.TrimSuffix(root, "/")
	if !strings.HasPrefix(p, root+"/") {
		return "", false
	}
	rel := p[len(root)+1:]
	return rel, rel != ""
}

package overview

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders o for inclusion in prompts and tool results.
func Markdown(o RepoOverview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Files:** %d (%d indexed)  \n**Chunks:** %d\n", o.TotalFiles, o.IndexedFiles, o.TotalChunks)

	if len(o.Folders) > 0 {
		b.WriteString("\n### Folders\n\n")
		b.WriteString("| Folder | Files | Size | Languages |\n")
		b.WriteString("|---|---:|---:|---|\n")
		for _, f := range o.Folders {
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", f.Path, f.FileCount, HumanSize(f.TotalSize), LanguageSummary(f.Languages))
		}
	}

	if len(o.RecentFiles) > 0 {
		b.WriteString("\n### Recently indexed\n\n")
		for _, f := range o.RecentFiles {
			lang := f.LanguageID
			if lang == "" {
				lang = UnknownLanguage
			}
			fmt.Fprintf(&b, "- `%s` (%s, %s, %s)\n", f.Path, lang, HumanSize(f.Size), f.LastIndexed.Format("2006-01-02 15:04"))
		}
	}
	return b.String()
}

// LanguageSummary renders a histogram as "go 3, python 1", most files first.
func LanguageSummary(langs map[string]int) string {
	type kv struct {
		lang  string
		count int
	}
	pairs := make([]kv, 0, len(langs))
	for l, c := range langs {
		pairs = append(pairs, kv{l, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].lang < pairs[j].lang
	})
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s %d", p.lang, p.count)
	}
	return strings.Join(parts, ", ")
}

// HumanSize formats a byte count with a binary unit.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

package overview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Languages sums the per-folder histograms.
func Languages(o RepoOverview) map[string]int {
	total := make(map[string]int)
	for _, f := range o.Folders {
		for lang, n := range f.Languages {
			total[lang] += n
		}
	}
	return total
}

// Text renders o for a terminal.
func Text(o RepoOverview) string {
	if o.IsZero() {
		return labelStyle.Render("No overview available. Run 'vybe index <path>' to build the index.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("Repository overview") + "\n")
	fmt.Fprintf(&b, "%s %d (%d indexed)\n", labelStyle.Render("Files: "), o.TotalFiles, o.IndexedFiles)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Chunks:"), o.TotalChunks)
	if langs := Languages(o); len(langs) > 0 {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Langs: "), LanguageSummary(langs))
	}

	if len(o.Folders) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(borderStyle).
			Headers("FOLDER", "FILES", "SIZE", "LANGUAGES")
		for _, f := range o.Folders {
			t.Row(f.Path, strconv.Itoa(f.FileCount), HumanSize(f.TotalSize), LanguageSummary(f.Languages))
		}
		b.WriteString("\n" + t.Render() + "\n")
	}

	if len(o.RecentFiles) > 0 {
		b.WriteString("\n" + headingStyle.Render("Recently indexed") + "\n")
		for _, f := range o.RecentFiles {
			fmt.Fprintf(&b, "  %s  %s\n", labelStyle.Render(f.LastIndexed.Local().Format("2006-01-02 15:04")), f.Path)
		}
	}
	return b.String()
}

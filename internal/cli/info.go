package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/apresai/shortsmith/internal/platform"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms and their rules",
	Run: func(cmd *cobra.Command, args []string) {
		printPlatforms(cmd.OutOrStdout())
	},
}

var tonesCmd = &cobra.Command{
	Use:   "tones",
	Short: "List voiceover tones",
	Run: func(cmd *cobra.Command, args []string) {
		printTones(cmd.OutOrStdout())
	},
}

var tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

func init() {
	rootCmd.AddCommand(platformsCmd, tonesCmd)
}

func printPlatforms(w io.Writer) {
	fmt.Fprintln(w, tableHeaderStyle.Render(fmt.Sprintf("  %-8s %-16s %-6s %-9s %-6s %-9s %s",
		"ID", "LABEL", "RATIO", "DURATION", "TITLE", "HASHTAGS", "EXTRAS")))
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 78))
	for _, r := range platform.All() {
		extras := "-"
		if r.HasExtras() {
			extras = strings.Join(r.ExtraFields, ", ")
		}
		fmt.Fprintf(w, "  %-8s %-16s %-6s %-9s %-6d %-9s %s\n",
			r.ID, r.Label, r.AspectRatio,
			fmt.Sprintf("%d-%ds", r.MinSec, r.MaxSec),
			r.SEO.TitleMaxChars,
			fmt.Sprintf("%d-%d", r.SEO.HashtagMin, r.SEO.HashtagMax),
			extras)
	}
	fmt.Fprintf(w, "\n  Durations snap to %d-second segments.\n", platform.SegmentSeconds)
}

func printTones(w io.Writer) {
	for _, t := range platform.Tones {
		def := ""
		if t.ID == platform.DefaultTone {
			def = " (default)"
		}
		fmt.Fprintf(w, "  %-14s %s%s\n", t.ID, t.Label, def)
	}
}

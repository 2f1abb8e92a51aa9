package main

import (
	"encoding/hex"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/clrfirmata/ilengine/internal/engine"
	"github.com/clrfirmata/ilengine/internal/flash"
)

var (
	dumpTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dumpKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(22)
	dumpBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func newDumpCmd() *cobra.Command {
	var flashPath string
	var flashSize int
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Mount a flash partition read-back and print its header",
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := flash.NewManager(flashPath, flashSize, 0, engine.Fingerprint())
			if err != nil {
				return fmt.Errorf("ilengine: open flash partition: %w", err)
			}
			valid, err := fm.Mount()
			if err != nil {
				return fmt.Errorf("ilengine: mount: %w", err)
			}

			fmt.Println(dumpBoxStyle.Render(renderHeader(flashPath, valid, fm)))
			return nil
		},
	}
	cmd.Flags().StringVar(&flashPath, "flash", "ilengine.flash", "path to the flash partition image")
	cmd.Flags().IntVar(&flashSize, "size", 256*1024, "partition capacity in bytes (must match the size it was frozen with)")
	return cmd
}

func renderHeader(path string, valid bool, fm *flash.Manager) string {
	h := fm.Header()
	row := func(k string, v string) string { return dumpKeyStyle.Render(k) + v + "\n" }

	out := dumpTitleStyle.Render(fmt.Sprintf("flash image: %s", path)) + "\n\n"
	out += row("valid", fmt.Sprintf("%v", valid))
	if !valid {
		return out
	}
	out += row("identifier", fmt.Sprintf("%#x", h.Identifier))
	out += row("dataVersion", fmt.Sprintf("%d", h.DataVersion))
	out += row("dataHashCode", fmt.Sprintf("%#x", h.DataHashCode))
	out += row("roots.classes", fmt.Sprintf("%#x", h.Roots.Classes))
	out += row("roots.methods", fmt.Sprintf("%#x", h.Roots.Methods))
	out += row("roots.constants", fmt.Sprintf("%#x", h.Roots.Constants))
	out += row("roots.clauses", fmt.Sprintf("%#x", h.Roots.Clauses))
	out += row("roots.stringHeap", fmt.Sprintf("%#x", h.Roots.StringHeap))
	out += row("startupToken", fmt.Sprintf("%#x", h.StartupToken))
	out += row("startupFlags", fmt.Sprintf("%#x", h.StartupFlags))
	out += row("staticVectorMemSize", fmt.Sprintf("%d", h.StaticVectorMemorySize))
	out += row("buildTimestamp", hex.EncodeToString(h.BuildTimestamp[:]))
	return out
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/firstpersontravel/charter-sub005/modules"
	"github.com/firstpersontravel/charter-sub005/tools"

	"github.com/spf13/cobra"
)

var (
	graphFormat    string
	graphHighlight string
)

var graphCmd = &cobra.Command{
	Use:   "graph SCRIPT",
	Short: "Render the trigger graph as Mermaid or Graphviz dot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadScript(args[0])
		if err != nil {
			return err
		}
		switch graphFormat {
		case "mermaid":
			return tools.Mermaid(c, cmd.OutOrStdout(), nil)
		case "dot":
			return tools.Dot(c, cmd.OutOrStdout(), graphHighlight)
		default:
			return fmt.Errorf("unknown format %q (want mermaid or dot)", graphFormat)
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze SCRIPT",
	Short: "Report unreachable triggers, unheard cues and other loose ends",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadScript(args[0])
		if err != nil {
			return err
		}
		reg, err := modules.Registry()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tools.Analyze(c, reg))
	},
}

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "mermaid", "mermaid or dot")
	graphCmd.Flags().StringVar(&graphHighlight, "highlight", "", "trigger to draw in red (dot only)")
}

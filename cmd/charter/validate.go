package main

import (
	"fmt"

	"github.com/firstpersontravel/charter-sub005/modules"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateCmd = &cobra.Command{
	Use:   "validate SCRIPT...",
	Short: "Check scripts against the registered actions, events and conditions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := modules.Registry()
		if err != nil {
			return err
		}
		bad := 0
		for _, filename := range args {
			c, err := ReadScript(filename)
			if err == nil {
				err = registry.ValidateScript(c)
			}
			if err != nil {
				bad++
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", filename, err)
				continue
			}
			logger.Debug("valid", zap.String("script", filename), zap.Int("triggers", len(c.Triggers)))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", filename)
		}
		if 0 < bad {
			return fmt.Errorf("%d invalid script(s)", bad)
		}
		return nil
	},
}

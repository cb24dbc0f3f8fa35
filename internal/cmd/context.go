package cmd

import (
	"github.com/spf13/cobra"
)

// CommandContext holds the global flags of one invocation.
type CommandContext struct {
	// Output control
	Format  string
	NoColor bool

	// Configuration
	ConfigFile string
	LogLevel   string
}

// NewCommandContext extracts the persistent flags from cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Format:     format,
		NoColor:    noColor,
		ConfigFile: configFile,
		LogLevel:   logLevel,
	}, nil
}

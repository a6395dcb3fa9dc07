package cliutil

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CommandConfig describes one leaf command of the worker CLI, such as
// `worker <task-type...>` or `workflow start <name>`. Args validates the
// positional task types or workflow ids before RunFunc is called.
type CommandConfig struct {
	Use     string
	Short   string
	Long    string
	Example string
	Args    cobra.PositionalArgs
	RunFunc func(cmd *cobra.Command, args []string) error
	Flags   map[string]Flag
}

// Flag is a local flag of a leaf command. Only the Default field matching
// Type is read; required flags make the command fail before RunFunc runs.
type Flag struct {
	Type        FlagType
	Shorthand   string
	Description string
	Required    bool

	DefaultString   string
	DefaultInt      int
	DefaultBool     bool
	DefaultDuration time.Duration
}

type FlagType int

const (
	FlagTypeString FlagType = iota
	FlagTypeInt
	FlagTypeBool
	// FlagTypeDuration accepts Go duration syntax, e.g. --interval 250ms.
	FlagTypeDuration
)

// CreateCommand builds the cobra command for config. Flags that cannot be
// marked required are logged and left optional.
func CreateCommand(config CommandConfig, log zerolog.Logger) *cobra.Command {
	run := config.RunFunc
	if run == nil {
		run = func(*cobra.Command, []string) error { return nil }
	}

	cmd := &cobra.Command{
		Use:     config.Use,
		Short:   config.Short,
		Long:    config.Long,
		Example: config.Example,
		Args:    config.Args,
		RunE:    run,
	}

	for name, flag := range config.Flags {
		flag.define(cmd, name)
		if !flag.Required {
			continue
		}
		if err := cmd.MarkFlagRequired(name); err != nil {
			log.Error().Err(err).Str("flag", name).Msg("Failed to mark flag as required")
		}
	}
	return cmd
}

func (f Flag) define(cmd *cobra.Command, name string) {
	fs := cmd.Flags()
	switch f.Type {
	case FlagTypeInt:
		fs.IntP(name, f.Shorthand, f.DefaultInt, f.Description)
	case FlagTypeBool:
		fs.BoolP(name, f.Shorthand, f.DefaultBool, f.Description)
	case FlagTypeDuration:
		fs.DurationP(name, f.Shorthand, f.DefaultDuration, f.Description)
	default:
		fs.StringP(name, f.Shorthand, f.DefaultString, f.Description)
	}
}

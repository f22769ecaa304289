package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/announcer/tts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configHeader = `# announcer configuration
#
# engine: espeak, piper or mock
# locale: BCP 47 tag such as "en-US"; empty uses LANG
# screen_reader: auto (look for running screen readers), on or off
# routes.*.role is the PulseAudio media.role, volume ranges from 0.0 to 1.0
# piper.models maps a base language ("de") to a model file
#
`

// fileConfig is the layout of announcer.yml.
type fileConfig struct {
	TTS tts.Config `yaml:"tts"`
}

// defaultConfig renders the default configuration file.
func defaultConfig() ([]byte, error) {
	b, err := yaml.Marshal(fileConfig{TTS: tts.DefaultConfig()})
	if err != nil {
		return nil, fmt.Errorf("unable to render default config: %w", err)
	}
	return append([]byte(configHeader), b...), nil
}

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the announcer config file",
	Long:    paragraph(fmt.Sprintf("\n%s the announcer config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("announcer config\nannouncer config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Announcer", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		b, err := defaultConfig()
		if err != nil {
			return err
		}
		if err := os.WriteFile(configFile, b, 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

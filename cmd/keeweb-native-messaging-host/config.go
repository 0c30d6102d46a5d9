package main

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keeweb/keeweb-native-messaging-host/internal/config"
	clierrors "github.com/keeweb/keeweb-native-messaging-host/internal/errors"
	"github.com/keeweb/keeweb-native-messaging-host/internal/output"
)

var configFormats = []string{"text", "yaml", "toml", "json"}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify the host's connection, launch and relay settings.`,
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Long:  `Display every setting with its effective value from the environment, the config file or the built-in default.`,
		Example: `  ` + binaryName + ` config list
  ` + binaryName + ` config list --format yaml
  ` + binaryName + ` config list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			if out.JSON {
				format = "json"
			}

			if !slices.Contains(configFormats, format) {
				return clierrors.InvalidChoice("format", format, configFormats)
			}

			tree := settingsTree(cfg)

			switch format {
			case "json":
				return out.PrintJSON(tree)
			case "yaml":
				var buf bytes.Buffer

				enc := yaml.NewEncoder(&buf)
				enc.SetIndent(2)

				if err := enc.Encode(tree); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}

				out.Print("%s", buf.String())
			case "toml":
				data, err := toml.Marshal(tree)
				if err != nil {
					return fmt.Errorf("encode toml: %w", err)
				}

				out.Print("%s", data)
			default:
				rows := make([][2]string, 0, len(config.Keys()))
				for _, key := range config.Keys() {
					rows = append(rows, [2]string{key, displayValue(cfg.Get(key))})
				}

				out.KeyValues(rows)

				if file, err := config.File(); err == nil {
					out.Println()
					out.Muted("Config file: %s", file)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, yaml, toml, json")

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Long:    `Retrieve and display the effective value of a single configuration key.`,
		Example: `  ` + binaryName + ` config get connect.max_attempts`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key := args[0]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key, config.Keys())
			}

			value := displayValue(config.Load().Get(key))

			if out.JSON {
				return out.PrintJSON(map[string]string{key: value})
			}

			if value == "" {
				out.Muted("%s is not set", key)
				return nil
			}

			out.Print("%s = %s\n", key, value)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  `Set a configuration key to the given value. The value is persisted to the config file and checked before it is saved.`,
		Example: `  ` + binaryName + ` config set connect.max_attempts 20
  ` + binaryName + ` config set companion.executable /opt/keeweb/keeweb`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key, value := args[0], args[1]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key, config.Keys())
			}

			cfg := config.Load()
			if err := cfg.Set(key, value); err != nil {
				return clierrors.ConfigFailed("save config", err)
			}

			if err := cfg.Validate(); err != nil {
				out.Warning("Saved, but the configuration is not usable: %v", err)
				return nil
			}

			out.Success("Set %s = %s", key, value)

			return nil
		},
	}
}

// settingsTree nests dotted keys into sections for YAML, TOML and JSON.
func settingsTree(cfg *config.Config) map[string]map[string]any {
	tree := map[string]map[string]any{}

	for _, key := range config.Keys() {
		section, name, _ := strings.Cut(key, ".")
		if tree[section] == nil {
			tree[section] = map[string]any{}
		}

		value := cfg.Get(key)
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}

		tree[section][name] = value
	}

	return tree
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Duration:
		return v.String()
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}

		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

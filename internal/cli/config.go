package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing cadence configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including defaults and CADENCE_* overrides.`,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long:  `Open the configuration file in your default editor.`,
	RunE:  runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Keys use section.field form, e.g.:
  api.base_url          Cadence API URL
  playback.volume       Startup volume (0-1)
  playback.repeat       Repeat mode (off/all/one)
  storage.backend       file, sqlite or redis
  log.level             debug, info, warn or error

Examples:
  cadence config set api.base_url https://music.example.com/api
  cadence config set playback.volume 0.5`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetStorageCmd = &cobra.Command{
	Use:   "set-storage",
	Short: "Interactively select the storage backend",
	Long:  `Shows a picker to select where the session and history are kept.`,
	RunE:  runConfigSetStorage,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetStorageCmd)
	rootCmd.AddCommand(configCmd)
}

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
)

// settableKeys lists every key `config set` accepts and its TOML type.
var settableKeys = map[string]keyKind{
	"api.base_url":               kindString,
	"api.media_base_url":         kindString,
	"api.timeout":                kindInt,
	"api.retries":                kindInt,
	"api.callback_addr":          kindString,
	"api.oauth_path":             kindString,
	"playback.volume":            kindFloat,
	"playback.shuffle":           kindBool,
	"playback.repeat":            kindString,
	"playback.load_timeout":      kindInt,
	"playback.skip_seconds":      kindInt,
	"playback.restart_threshold": kindInt,
	"playback.tick_interval":     kindInt,
	"storage.backend":            kindString,
	"storage.dir":                kindString,
	"storage.sqlite_path":        kindString,
	"storage.redis_addr":         kindString,
	"storage.redis_db":           kindInt,
	"history.limit":              kindInt,
	"tui.theme":                  kindString,
	"tui.refresh_interval":       kindInt,
	"log.level":                  kindString,
	"log.file":                   kindString,
	"log.max_size":               kindInt,
	"log.max_backups":            kindInt,
	"log.max_age":                kindInt,
	"log.compress":               kindBool,
}

// parseValue converts value to the TOML type of key.
func parseValue(key, value string) (any, error) {
	kind, ok := settableKeys[key]
	if !ok {
		keys := make([]string, 0, len(settableKeys))
		for k := range settableKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown key %q. Valid keys:\n  %s", key, strings.Join(keys, "\n  "))
	}

	switch kind {
	case kindInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("value must be an integer for %s", key)
		}
		return int64(i), nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("value must be a number for %s", key)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("value must be true or false for %s", key)
		}
		return b, nil
	}
	return value, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return printJSON(cfg)
	}

	encoder := toml.NewEncoder(os.Stdout)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if JSONOutput() {
		_, err := os.Stat(path)
		return printJSON(map[string]any{"path": path, "exists": err == nil})
	}
	fmt.Println(path)
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Run 'cadence config init' first", configPath)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"nano", "vim", "vi", "notepad"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set EDITOR environment variable")
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	return editorCmd.Run()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	if err := config.Write(configPath, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if JSONOutput() {
		return printJSON(map[string]string{
			"status": "created",
			"path":   configPath,
		})
	}
	fmt.Printf("Created config file: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point api.base_url at your Cadence server (or set CADENCE_API_URL)")
	fmt.Println("  2. Run 'cadence auth login' to sign in")
	return nil
}

// getConfigPath returns the file config commands operate on: --config, the
// file currently loaded, or the default location for a new one.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := config.Path(); p != "" {
		return p
	}
	p, err := config.DefaultPath()
	if err != nil {
		return ".cadencerc"
	}
	return p
}

// setKey writes key = value into the TOML file at path, keeping other keys.
func setKey(path, key string, value any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	rawConfig := map[string]any{}
	if _, err := toml.Decode(string(data), &rawConfig); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	section, field, _ := strings.Cut(key, ".")
	sectionMap, ok := rawConfig[section].(map[string]any)
	if !ok {
		sectionMap = make(map[string]any)
		rawConfig[section] = sectionMap
	}
	sectionMap[field] = value

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = "  "
	if err := encoder.Encode(rawConfig); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Reject edits that would leave an unloadable file.
	var check config.Config
	if _, err := toml.Decode(buf.String(), &check); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	check.ApplyDefaults()
	if err := check.Validate(); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0600)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Run 'cadence config init' first", configPath)
	}

	if err := setKey(configPath, key, typed); err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

func runConfigSetStorage(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Run 'cadence config init' first", configPath)
	}

	selected := cfg.Storage.Backend
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select storage backend").
				Description("Where the session token and listening history are kept").
				Options(
					huh.NewOption("Files in "+cfg.Storage.Dir, "file"),
					huh.NewOption("SQLite database", "sqlite"),
					huh.NewOption("Redis server", "redis"),
				).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("selection cancelled: %w", err)
	}

	if selected == "redis" && cfg.Storage.RedisAddr == "" {
		addr := "localhost:6379"
		err := huh.NewInput().
			Title("Redis address").
			Value(&addr).
			Run()
		if err != nil {
			return fmt.Errorf("selection cancelled: %w", err)
		}
		if err := setKey(configPath, "storage.redis_addr", addr); err != nil {
			return err
		}
	}

	return runConfigSet(cmd, []string{"storage.backend", selected})
}

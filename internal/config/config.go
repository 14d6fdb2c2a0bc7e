package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

const (
	maxActionItems   = 12
	maxLookaheadDays = 366
)

type Runtime struct {
	ConfigFile string

	Store    string
	StateDir string
	DBPath   string
	MenuDir  string
	MenuPath string

	ViewMode      schedule.ViewMode
	MaxItems      int
	LookaheadDays int

	Notifier       string
	TelegramToken  string
	TelegramChatID int64
	Rescan         string

	LogLevel  string
	LogFormat string
	Timeout   time.Duration
}

func Load() (Runtime, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Runtime{}, fmt.Errorf("resolve home dir: %w", err)
	}

	xdgConfig := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	xdgState := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}

	defaultConfig := filepath.Join(xdgConfig, "waybar", "calendar.env")
	configFile := strings.TrimSpace(os.Getenv("WAYBAR_CALENDAR_CONFIG_FILE"))
	if configFile == "" {
		configFile = defaultConfig
	}

	if err := loadEnvFile(configFile); err != nil {
		return Runtime{}, err
	}

	defaultStateDir := filepath.Join(xdgState, "waybar", "calendar")
	defaultMenuDir := filepath.Join(xdgState, "waybar", "menus")

	v := viper.New()
	v.SetEnvPrefix("WAYBAR_CALENDAR")
	v.AutomaticEnv()

	_ = v.BindEnv("store", "WAYBAR_CALENDAR_STORE")
	_ = v.BindEnv("state_dir", "WAYBAR_CALENDAR_STATE_DIR")
	_ = v.BindEnv("db_path", "WAYBAR_CALENDAR_DB_PATH")
	_ = v.BindEnv("menu_dir", "WAYBAR_CALENDAR_MENU_DIR")
	_ = v.BindEnv("view_mode", "WAYBAR_CALENDAR_VIEW_MODE", "VIEW_MODE")
	_ = v.BindEnv("max_items", "WAYBAR_CALENDAR_MAX_ITEMS", "MAX_ITEMS")
	_ = v.BindEnv("lookahead_days", "WAYBAR_CALENDAR_LOOKAHEAD_DAYS", "LOOKAHEAD_DAYS")
	_ = v.BindEnv("notifier", "WAYBAR_CALENDAR_NOTIFIER")
	_ = v.BindEnv("telegram_token", "WAYBAR_CALENDAR_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("telegram_chat_id", "WAYBAR_CALENDAR_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	_ = v.BindEnv("rescan", "WAYBAR_CALENDAR_RESCAN")
	_ = v.BindEnv("log_level", "WAYBAR_CALENDAR_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "WAYBAR_CALENDAR_LOG_FORMAT")
	_ = v.BindEnv("timeout_seconds", "WAYBAR_CALENDAR_TIMEOUT_SECONDS")

	v.SetDefault("store", "json")
	v.SetDefault("state_dir", defaultStateDir)
	v.SetDefault("db_path", "")
	v.SetDefault("menu_dir", defaultMenuDir)
	v.SetDefault("view_mode", string(schedule.ViewMonth))
	v.SetDefault("max_items", 6)
	v.SetDefault("lookahead_days", 7)
	v.SetDefault("notifier", "dbus")
	v.SetDefault("telegram_chat_id", 0)
	v.SetDefault("rescan", "@every 5m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("timeout_seconds", 20)

	maxItems := v.GetInt("max_items")
	if maxItems < 1 {
		maxItems = 1
	}
	if maxItems > maxActionItems {
		maxItems = maxActionItems
	}

	lookaheadDays := v.GetInt("lookahead_days")
	if lookaheadDays < 1 {
		lookaheadDays = 1
	}
	if lookaheadDays > maxLookaheadDays {
		lookaheadDays = maxLookaheadDays
	}

	timeoutSeconds := v.GetInt("timeout_seconds")
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}

	viewMode, err := schedule.ParseViewMode(v.GetString("view_mode"))
	if err != nil {
		viewMode = schedule.ViewMonth
	}

	stateDir := strings.TrimSpace(v.GetString("state_dir"))
	if stateDir == "" {
		stateDir = defaultStateDir
	}

	menuDir := strings.TrimSpace(v.GetString("menu_dir"))
	if menuDir == "" {
		menuDir = defaultMenuDir
	}

	dbPath := strings.TrimSpace(v.GetString("db_path"))
	if dbPath == "" {
		dbPath = filepath.Join(stateDir, "calendar.db")
	}

	rescan := strings.TrimSpace(v.GetString("rescan"))
	if rescan == "" {
		rescan = "@every 5m"
	}

	return Runtime{
		ConfigFile:     configFile,
		Store:          strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		StateDir:       stateDir,
		DBPath:         dbPath,
		MenuDir:        menuDir,
		MenuPath:       filepath.Join(menuDir, "calendar.xml"),
		ViewMode:       viewMode,
		MaxItems:       maxItems,
		LookaheadDays:  lookaheadDays,
		Notifier:       strings.ToLower(strings.TrimSpace(v.GetString("notifier"))),
		TelegramToken:  strings.TrimSpace(v.GetString("telegram_token")),
		TelegramChatID: v.GetInt64("telegram_chat_id"),
		Rescan:         rescan,
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:      strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		Timeout:        time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// loadEnvFile copies KEY=value pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:        true,
		KeyValueDelimiters:         "=",
		AllowPythonMultilineValues: false,
	}, path)
	if err != nil {
		return fmt.Errorf("parse env file %s: %w", path, err)
	}

	for _, key := range file.Section(ini.DefaultSection).Keys() {
		name := strings.TrimSpace(strings.TrimPrefix(key.Name(), "export "))
		if name == "" {
			continue
		}

		value := unquote(strings.TrimSpace(key.String()))
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		_ = os.Setenv(name, value)
	}
	return nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '\'' && value[len(value)-1] == '\'') ||
			(value[0] == '"' && value[len(value)-1] == '"') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "daylist.db"
	DefaultLogName        = "daylist.log"
	DefaultTimeFormat     = "15:04"

	configDirName = "daylist"
	configEnv     = "DAYLIST_CONFIG"
)

type Keymap struct {
	Quit        string `toml:"quit"`
	Add         string `toml:"add"`
	Up          string `toml:"up"`
	Down        string `toml:"down"`
	Toggle      string `toml:"toggle"`
	Delete      string `toml:"delete"`
	Rename      string `toml:"rename"`
	Confirm     string `toml:"confirm"`
	Cancel      string `toml:"cancel"`
	PrevDay     string `toml:"prev_day"`
	NextDay     string `toml:"next_day"`
	Today       string `toml:"today"`
	Earlier     string `toml:"earlier"`
	Later       string `toml:"later"`
	MoveBack    string `toml:"move_back"`
	MoveForward string `toml:"move_forward"`

	FoldPending   string `toml:"fold_pending"`
	FoldCompleted string `toml:"fold_completed"`
}

type Config struct {
	DBPath        string `toml:"db_path"`
	LogPath       string `toml:"log_path"`
	ShowCompleted bool   `toml:"show_completed"`
	TimeFormat    string `toml:"time_format"`
	Keys          Keymap `toml:"keys"`
}

// ResolveConfigPath returns $DAYLIST_CONFIG when set, otherwise config.toml
// under the user config directory, falling back to the working directory.
func ResolveConfigPath() string {
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, configDirName, DefaultConfigFileName)
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(path), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = DefaultTimeFormat
	}
	cfg.Keys = cfg.Keys.withDefaults(defaultConfig().Keys)
	return cfg.resolve(path), nil
}

// resolve makes relative file paths relative to the config file.
func (c Config) resolve(configPath string) Config {
	dir := filepath.Dir(configPath)
	if c.DBPath != "" && !filepath.IsAbs(c.DBPath) {
		c.DBPath = filepath.Join(dir, c.DBPath)
	}
	if c.LogPath != "" && !filepath.IsAbs(c.LogPath) {
		c.LogPath = filepath.Join(dir, c.LogPath)
	}
	return c
}

func (k Keymap) withDefaults(d Keymap) Keymap {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&k.Quit, d.Quit)
	fill(&k.Add, d.Add)
	fill(&k.Up, d.Up)
	fill(&k.Down, d.Down)
	fill(&k.Toggle, d.Toggle)
	fill(&k.Delete, d.Delete)
	fill(&k.Rename, d.Rename)
	fill(&k.Confirm, d.Confirm)
	fill(&k.Cancel, d.Cancel)
	fill(&k.PrevDay, d.PrevDay)
	fill(&k.NextDay, d.NextDay)
	fill(&k.Today, d.Today)
	fill(&k.Earlier, d.Earlier)
	fill(&k.Later, d.Later)
	fill(&k.MoveBack, d.MoveBack)
	fill(&k.MoveForward, d.MoveForward)
	fill(&k.FoldPending, d.FoldPending)
	fill(&k.FoldCompleted, d.FoldCompleted)
	return k
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBPath:        DefaultDBName,
		LogPath:       DefaultLogName,
		ShowCompleted: true,
		TimeFormat:    DefaultTimeFormat,
		Keys: Keymap{
			Quit:        "q",
			Add:         "a",
			Up:          "k",
			Down:        "j",
			Toggle:      " ",
			Delete:      "d",
			Rename:      "r",
			Confirm:     "enter",
			Cancel:      "esc",
			PrevDay:     "[",
			NextDay:     "]",
			Today:       "t",
			Earlier:     "-",
			Later:       "+",
			MoveBack:    "<",
			MoveForward: ">",

			FoldPending:   "p",
			FoldCompleted: "c",
		},
	}
}

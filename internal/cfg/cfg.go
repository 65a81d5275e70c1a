// Package cfg allows for reading the user's configuration.
package cfg

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/vhslib/vaporwm/internal/res"
	"github.com/vhslib/vaporwm/internal/x11"
)

// Profile contains an entire configuration profile.
type Profile struct {
	LogLevel string `toml:"log_level"` // Minimum severity written to the log
	LogPath  string `toml:"log_path"`  // Log file location

	// Spawn maps hotkeys to the shell commands they launch.
	Spawn map[x11.Key]string `toml:"spawn"`
}

// GetDirectory returns the path to the user's configuration directory.
func GetDirectory() (string, error) {
	// UserConfigDir automatically checks for $XDG_CONFIG_HOME and falls back
	// to $HOME/.config, so we don't need to do any special checks ourselves.
	xdgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return xdgDir + "/vaporwm/", nil
}

// GetPath returns the path of the configuration profile with the given name.
func GetPath(name string) (string, error) {
	dir, err := GetDirectory()
	if err != nil {
		return "", fmt.Errorf("get config directory: %w", err)
	}
	return dir + name + ".toml", nil
}

// GetProfile returns a parsed configuration profile. If no profile with the
// given name exists on disk, the embedded default configuration is used.
func GetProfile(name string) (Profile, error) {
	path, err := GetPath(name)
	if err != nil {
		return Profile{}, err
	}
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		file = res.DefaultConfig
	case err != nil:
		return Profile{}, fmt.Errorf("read config file: %w", err)
	}
	profile := Profile{}
	if err = toml.Unmarshal(file, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse config file: %w", err)
	}
	if err = validateProfile(&profile); err != nil {
		return Profile{}, fmt.Errorf("validate config: %w", err)
	}
	return profile, nil
}

// MakeProfile makes a new configuration profile with the given name and the
// default settings.
func MakeProfile(name string) error {
	dir, err := GetDirectory()
	if err != nil {
		return fmt.Errorf("get config directory: %w", err)
	}
	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			err := os.Mkdir(dir, 0755)
			if err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
		}
	} else {
		if !stat.IsDir() {
			return fmt.Errorf("config directory (%s) is not a directory", dir)
		}
	}
	return os.WriteFile(
		dir+name+".toml",
		res.DefaultConfig,
		0644,
	)
}

// validateProfile ensures that the user's configuration profile does not have
// any illegal settings and fills in defaults for omitted ones.
func validateProfile(conf *Profile) error {
	switch conf.LogLevel {
	case "":
		conf.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", conf.LogLevel)
	}
	if conf.LogPath == "" {
		conf.LogPath = "/tmp/vaporwm.log"
	}
	return nil
}

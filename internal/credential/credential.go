// Package credential resolves the CoinMarketCap API key at startup.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// EnvKey is checked before the INI file.
	EnvKey = "CMC_API_KEY"
	// DefaultFile is the INI fallback, relative to the working directory.
	DefaultFile = "coinmarket.ini"
	// FileKey is read from the default section of the INI file.
	FileKey = "API_KEY"
)

var errEmpty = errors.New("empty value")

// ConfigurationError means no usable API key was found. It is fatal.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "API key missing. Set " + EnvKey + " or create " + DefaultFile + "."
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Resolve returns the API key from the environment or, failing that, from the
// INI file at path. lookupEnv is normally os.LookupEnv.
func Resolve(lookupEnv func(string) (string, bool), path string) (string, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if v, ok := lookupEnv(EnvKey); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	if path == "" {
		path = DefaultFile
	}
	key, err := fromFile(path)
	if err != nil {
		return "", &ConfigurationError{Err: err}
	}
	return key, nil
}

func fromFile(path string) (string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	k, err := f.Section(ini.DefaultSection).GetKey(FileKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	v := strings.TrimSpace(k.String())
	if v == "" {
		return "", fmt.Errorf("%s: %s: %w", path, FileKey, errEmpty)
	}
	return v, nil
}

// Package config reads and writes the user configuration file at
// $XDG_CONFIG_HOME/go-medbot/config (default ~/.config/go-medbot/config).
//
// The file holds one key=value per line. Environment variables fill in keys the
// file leaves unset, and built-in defaults fill in the rest.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Config keys.
const (
	KeyAPIURL    = "api-url"
	KeyOutputDir = "output-dir"
	KeyDevice    = "device"
	KeyCapture   = "capture"
	KeyLogLevel  = "log-level"
)

// Environment variable fallbacks.
const (
	EnvAPIURL    = "MEDBOT_API_URL"
	EnvOutputDir = "MEDBOT_OUTPUT_DIR"
	EnvDevice    = "MEDBOT_DEVICE"
	EnvCapture   = "MEDBOT_CAPTURE"
	EnvLogLevel  = "MEDBOT_LOG_LEVEL"
)

// Defaults for keys left unset everywhere.
const (
	DefaultAPIURL   = "http://localhost:8000"
	DefaultCapture  = "auto"
	DefaultLogLevel = "warn"
)

// ErrUnknownKey indicates a key outside the supported set.
var ErrUnknownKey = errors.New("unknown config key")

// ErrInvalidValue indicates a value rejected by its key's validation.
var ErrInvalidValue = errors.New("invalid config value")

// Config holds the effective user configuration.
type Config struct {
	APIURL    string
	OutputDir string
	Device    string
	Capture   string
	LogLevel  string
}

// Value returns the effective value of key, or "" for an unknown key.
func (c Config) Value(key string) string {
	ks, ok := keys[key]
	if !ok {
		return ""
	}
	return *ks.field(&c)
}

// keySpec describes one supported key.
type keySpec struct {
	env      string
	def      string
	validate func(string) error
	field    func(*Config) *string
}

var keys = map[string]keySpec{
	KeyAPIURL:    {env: EnvAPIURL, def: DefaultAPIURL, validate: validateURL, field: func(c *Config) *string { return &c.APIURL }},
	KeyOutputDir: {env: EnvOutputDir, validate: ValidOutputDir, field: func(c *Config) *string { return &c.OutputDir }},
	KeyDevice:    {env: EnvDevice, field: func(c *Config) *string { return &c.Device }},
	KeyCapture:   {env: EnvCapture, def: DefaultCapture, validate: oneOf("auto", "direct", "compressed"), field: func(c *Config) *string { return &c.Capture }},
	KeyLogLevel:  {env: EnvLogLevel, def: DefaultLogLevel, validate: oneOf("debug", "info", "warn", "error"), field: func(c *Config) *string { return &c.LogLevel }},
}

// Keys returns the supported keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Validate checks value for key. Empty values are accepted for every key and
// mean "unset".
func Validate(key, value string) error {
	ks, ok := keys[key]
	if !ok {
		return fmt.Errorf("%q (valid keys: %s): %w", key, strings.Join(Keys(), ", "), ErrUnknownKey)
	}
	if value == "" || ks.validate == nil {
		return nil
	}
	if err := ks.validate(value); err != nil {
		return fmt.Errorf("%s: %v: %w", key, err, ErrInvalidValue)
	}
	return nil
}

func validateURL(v string) error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", v)
	}
	return nil
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		if slices.Contains(allowed, strings.ToLower(v)) {
			return nil
		}
		return fmt.Errorf("%q (use %s)", v, strings.Join(allowed, ", "))
	}
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-medbot.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "go-medbot"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "go-medbot"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration.
// Precedence per key: config file, then environment variable, then default.
// A missing file is not an error.
func Load() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	for key, ks := range keys {
		v := data[key]
		if v == "" {
			v = os.Getenv(ks.env)
		}
		if v == "" {
			v = ks.def
		}
		*ks.field(&cfg) = v
	}
	return cfg, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return data, nil
}

// Save validates and writes a single key=value to the config file.
// An empty value removes the key. Existing pairs are kept; comments are not.
func Save(key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}

	p, err := path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	if value == "" {
		delete(existing, key)
	} else {
		existing[key] = value
	}
	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sorted := make([]string, 0, len(data))
	for k := range data {
		sorted = append(sorted, k)
	}
	slices.Sort(sorted)

	w := bufio.NewWriter(f)
	for _, k := range sorted {
		if _, err := fmt.Fprintf(w, "%s=%s\n", k, data[k]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	if _, ok := keys[key]; !ok {
		return "", fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	data, err := List()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// List returns all values stored in the config file.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	return data, nil
}

// ResolveOutputPath resolves where a recording is saved:
//  1. An absolute output is used as-is
//  2. A relative output is joined to outputDir when set
//  3. An empty output uses defaultName in outputDir (or the working directory)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	outputDir = ExpandPath(outputDir)
	output = ExpandPath(output)

	switch {
	case output != "" && filepath.IsAbs(output):
		return filepath.Clean(output)
	case output != "" && outputDir != "":
		return filepath.Clean(filepath.Join(outputDir, output))
	case output != "":
		return filepath.Clean(output)
	case outputDir != "":
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	default:
		return filepath.Clean(defaultName)
	}
}

// ValidOutputDir checks that d is a writable directory, creating it if needed.
func ValidOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	f, err := os.CreateTemp(d, ".go-medbot-write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Path returns the config file path.
func Path() (string, error) {
	return path()
}

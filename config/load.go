package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	yaml "sigs.k8s.io/yaml/goyaml.v3"

	fskit "github.com/italypaleale/eventchain/fs"
)

// LoadConfigOpts contains options for LoadConfig
type LoadConfigOpts struct {
	// Name of the env var that contains the path to the config file
	EnvVar string
	// Name of the folder, within the home directory (as a hidden folder) and /etc, where to look for the config file
	DirName string
	// If true, it's not an error when no config file is found in the search paths, and dst is left unchanged
	// The file pointed to by EnvVar must exist regardless
	Optional bool
}

// ConfigDest is the interface for objects that config is loaded into
type ConfigDest interface {
	SetLoadedConfigPath(path string)
}

// LoadConfig loads the configuration from a YAML file into dst, which must be a pointer to a struct.
// Unknown keys in the file cause an error.
func LoadConfig(dst ConfigDest, opts LoadConfigOpts) error {
	configFile, err := resolveConfigPath(opts)
	if err != nil {
		return err
	}

	// Nothing to load
	if configFile == "" {
		return nil
	}

	err = loadConfigFile(dst, configFile)
	if err != nil {
		return NewConfigError(err, "Error loading config file")
	}
	dst.SetLoadedConfigPath(configFile)

	return nil
}

// Returns the path to the config file to load.
// The returned path is empty if no file was found and opts.Optional is true.
func resolveConfigPath(opts LoadConfigOpts) (string, error) {
	// The env var has priority
	if opts.EnvVar != "" {
		configFile := os.Getenv(opts.EnvVar)
		if configFile != "" {
			exists, _ := fskit.FileExists(configFile)
			if !exists {
				return "", NewConfigError("Environmental variable "+opts.EnvVar+" points to a file that does not exist", "Error loading config file")
			}
			return configFile, nil
		}
	}

	// Look in the default paths
	// Note: It's .yaml not .yml! https://yaml.org/faq.html
	searchPaths := []string{".", "~/." + opts.DirName, "/etc/" + opts.DirName}
	for _, name := range []string{"config.yaml", "config.yml"} {
		configFile := findConfigFile(name, searchPaths...)
		if configFile != "" {
			return configFile, nil
		}
	}

	if opts.Optional {
		return "", nil
	}
	return "", NewConfigError("Could not find a configuration file config.yaml in the current folder, '~/."+opts.DirName+"', or '/etc/"+opts.DirName+"'", "Error loading config file")
}

// Loads the configuration from a file.
// "dst" must be a pointer to a struct.
func loadConfigFile(dst any, filePath string) error {
	f, err := os.Open(filePath) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to open config file '%s': %w", filePath, err)
	}
	defer f.Close() //nolint:errcheck

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(dst)
	if err != nil {
		return fmt.Errorf("failed to decode config file '%s': %w", filePath, err)
	}

	return nil
}

func findConfigFile(fileName string, searchPaths ...string) string {
	for _, path := range searchPaths {
		p, _ := homedir.Expand(path)
		if p != "" {
			path = p
		}

		search := filepath.Join(path, fileName)
		exists, _ := fskit.FileExists(search)
		if exists {
			return search
		}
	}

	return ""
}

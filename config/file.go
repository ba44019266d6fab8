package config

import (
	"fmt"
	os2 "os"
	"path/filepath"
	"strings"

	"github.com/cometbft/cometbft/libs/os"
	"github.com/tessellated-io/haqq-delegator/log"
)

// ReadFile expands a short path (ex. ~/.haqq-delegator/config.yaml => /home/tessellated/.haqq-delegator/config.yaml) and
// checks that it exists.
func ReadFile(configFile string) (string, error) {
	expandedConfigFile, err := ExpandHomeDir(configFile)
	if err != nil {
		return "", err
	}
	if !os.FileExists(expandedConfigFile) {
		return "", fmt.Errorf("%w: %s", ErrConfigNotFound, configFile)
	}
	return expandedConfigFile, nil
}

func CreateDirectoryIfNeeded(configurationDirectory string, logger *log.Logger) error {
	expanded, err := ExpandHomeDir(configurationDirectory)
	if err != nil {
		return err
	}
	exists, err := folderExists(expanded)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	err = os2.MkdirAll(expanded, 0o755)
	if err != nil {
		return err
	}

	logger.Info("created configuration directory", "configuration_dir", configurationDirectory)

	return nil
}

// SafeWrite writes a file unless it already exists.
func SafeWrite(file string, contents []byte, logger *log.Logger) error {
	expanded, err := ExpandHomeDir(file)
	if err != nil {
		return err
	}
	if os.FileExists(expanded) {
		logger.Warn("skipping overwriting existing file", "file", expanded)
		return nil
	}

	if err := CreateDirectoryIfNeeded(filepath.Dir(expanded), logger); err != nil {
		return err
	}

	err = os.WriteFile(expanded, contents, 0o600)
	if err != nil {
		return err
	}
	logger.Info("wrote file", "file", expanded)
	return nil
}

func ExpandHomeDir(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os2.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user's home directory: %w", err)
	}
	return strings.Replace(path, "~", home, 1), nil
}

func FileExists(filePath string) (bool, error) {
	expanded, err := ExpandHomeDir(filePath)
	if err != nil {
		return false, err
	}

	return os.FileExists(expanded), nil
}

func folderExists(folderPath string) (bool, error) {
	fileInfo, err := os2.Stat(folderPath)
	if err != nil {
		if os2.IsNotExist(err) {
			// The folder does not exist
			return false, nil
		}
		// Some other error occurred when trying to access the folder
		return false, err
	}
	// Check if the path is indeed a folder/directory
	return fileInfo.IsDir(), nil
}

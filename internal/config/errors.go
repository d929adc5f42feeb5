package config

import "fmt"

type ConfigFileInvalidError struct {
	Path string
	Err  error
}

func (e *ConfigFileInvalidError) Error() string {
	return fmt.Sprintf("Configuration file is invalid: %s: %s", e.Path, e.Err)
}

func (e *ConfigFileInvalidError) Unwrap() error {
	return e.Err
}

type ConfigFileNotFoundError struct {
	Path string
}

func (e *ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("Configuration file not found: %s", e.Path)
}

type ConfigFileExistsError struct {
	Path string
}

func (e *ConfigFileExistsError) Error() string {
	return fmt.Sprintf("Configuration file already exists: %s", e.Path)
}

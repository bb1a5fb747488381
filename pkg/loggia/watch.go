// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package loggia

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrLevelFile is returned when a level file cannot be read or applied.
var ErrLevelFile = errors.New("invalid level file")

// LevelFile is the content of a level file:
//
//	log_level: INFO
//	loggers:
//	  - name: grpc
//	    log_level: DEBUG
type LevelFile struct {
	LogLevel string        `yaml:"log_level"`
	Loggers  []LoggerLevel `yaml:"loggers"`
}

// LoggerLevel is the level of a single logger in a LevelFile.
type LoggerLevel struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// ApplyLevelFile reads path and sets the levels it lists.
func (rt *Runtime) ApplyLevelFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLevelFile, err)
	}

	var levels LevelFile
	if err := yaml.Unmarshal(data, &levels); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLevelFile, path, err)
	}

	var errs []error
	if levels.LogLevel != "" {
		errs = append(errs, rt.SetLevel("", levels.LogLevel))
	}
	for _, logger := range levels.Loggers {
		errs = append(errs, rt.SetLevel(logger.Name, logger.LogLevel))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLevelFile, path, err)
	}

	return nil
}

// WatchLevels applies the level file at path, then applies it again every time it
// is written, until ctx is done. Errors met while watching are logged on the
// loggia logger.
func (rt *Runtime) WatchLevels(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if err := rt.ApplyLevelFile(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// editors often replace files instead of writing them: watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	logger := rt.Logger(DiagnosticsLogger)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				if err := rt.ApplyLevelFile(path); err != nil {
					logger.Warn("cannot apply level file", zap.Error(err))
					continue
				}
				logger.Debug("level file applied", zap.String("path", path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("level file watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

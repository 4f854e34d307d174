package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/deepgram/voxchat/pkg/logger"
)

// LoadEnvFiles loads the given dotenv files into the process environment.
// Variables that are already set win over file values. Missing files are
// skipped.
func LoadEnvFiles(files ...string) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug(logger.CONFIG, "No %s file found", file)
				continue
			}
			logger.Warn(logger.CONFIG, "Failed to load %s: %v", file, err)
			continue
		}
		logger.Info(logger.CONFIG, "Loaded environment from %s", file)
	}
}

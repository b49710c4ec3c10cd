package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/portfolio-agent/internal/config"
	"go.uber.org/zap"
)

// LoadResume reads the resume text used for JD analysis. When the file is missing or
// empty it logs a warning and returns a one-line profile summary instead.
func LoadResume(profile config.ProfileConfig, logger *zap.Logger) string {
	fallback := fmt.Sprintf("Profile: %s (%s).", profile.Name, profile.Title)
	if profile.ResumePath == "" {
		logger.Warn("no resume path configured; using profile summary")
		return fallback
	}
	data, err := os.ReadFile(profile.ResumePath)
	if err != nil {
		logger.Warn("resume not loaded; using profile summary", zap.String("path", profile.ResumePath), zap.Error(err))
		return fallback
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		logger.Warn("resume file is empty; using profile summary", zap.String("path", profile.ResumePath))
		return fallback
	}
	logger.Info("resume loaded", zap.String("path", profile.ResumePath), zap.Int("bytes", len(text)))
	return text
}

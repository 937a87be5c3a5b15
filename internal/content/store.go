// Package content holds the process-wide read-only personal data: the profile
// document, the photo-notes document, and the ski-day record. Everything is
// loaded once and never mutated; the source files are redeployed, not edited
// at runtime.
package content

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Store provides lazy, once-only access to the static content.
type Store struct {
	profilePath string
	photosPath  string
	skiDaysPath string

	profileOnce sync.Once
	profile     string
	profileErr  error

	photosOnce sync.Once
	photos     string
	photosErr  error

	skiOnce sync.Once
	skiDays []SkiDay
	skiErr  error
}

// NewStore creates a store over the configured document paths.
func NewStore(profilePath, photosPath, skiDaysPath string) *Store {
	return &Store{
		profilePath: profilePath,
		photosPath:  photosPath,
		skiDaysPath: skiDaysPath,
	}
}

// Profile returns the profile document.
func (s *Store) Profile() (string, error) {
	s.profileOnce.Do(func() {
		s.profile, s.profileErr = readDocument(s.profilePath, "profile")
	})
	return s.profile, s.profileErr
}

// Photos returns the photo-notes document.
func (s *Store) Photos() (string, error) {
	s.photosOnce.Do(func() {
		s.photos, s.photosErr = readDocument(s.photosPath, "photos")
	})
	return s.photos, s.photosErr
}

// SkiDays returns the parsed ski-day record.
func (s *Store) SkiDays() ([]SkiDay, error) {
	s.skiOnce.Do(func() {
		s.skiDays, s.skiErr = loadSkiDays(s.skiDaysPath)
	})
	return s.skiDays, s.skiErr
}

func readDocument(path, name string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%s document path not configured", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s document: %w", name, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%s document is empty", name)
	}
	return text, nil
}

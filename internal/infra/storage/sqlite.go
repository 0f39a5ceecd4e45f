package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"bookfeed/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LastInstrumentKey is the AppConfig key holding the most recently watched
// instrument symbol.
const LastInstrumentKey = "last_instrument"

// Storage persists instrument metadata and user configuration
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at the default OS path
func NewStorage() (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	return Open(dbPath)
}

// Open opens (or creates) the database at path and runs migrations
func Open(path string) (*Storage, error) {
	// Pure Go SQLite
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.InstrumentInfo{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "Bookfeed", "data", "bookfeed.db"), nil
}

// ======================================================================================
// Instrument Operations
// ======================================================================================

// UpsertInstrument creates or updates instrument metadata
func (s *Storage) UpsertInstrument(info *domain.InstrumentInfo) error {
	return s.db.Save(info).Error
}

// GetInstrument retrieves instrument metadata by symbol
func (s *Storage) GetInstrument(symbol string) (*domain.InstrumentInfo, error) {
	var info domain.InstrumentInfo
	err := s.db.First(&info, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &info, err
}

// GetAllInstruments retrieves all instruments
func (s *Storage) GetAllInstruments() ([]domain.InstrumentInfo, error) {
	var infos []domain.InstrumentInfo
	err := s.db.Find(&infos).Error
	return infos, err
}

// ToggleFavorite toggles the favorite status of an instrument
func (s *Storage) ToggleFavorite(symbol string) (bool, error) {
	var info domain.InstrumentInfo
	if err := s.db.First(&info, "symbol = ?", symbol).Error; err != nil {
		return false, err
	}

	info.IsFavorite = !info.IsFavorite
	err := s.db.Save(&info).Error
	return info.IsFavorite, err
}

// TouchWatched records symbol as the active instrument: stamps its
// last-watched time and remembers it as the last instrument
func (s *Storage) TouchWatched(symbol string) error {
	if err := s.db.Model(&domain.InstrumentInfo{}).
		Where("symbol = ?", symbol).
		Update("last_watched_at", time.Now()).Error; err != nil {
		return err
	}
	return s.SaveConfig(LastInstrumentKey, symbol)
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}

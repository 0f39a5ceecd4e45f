package app

import (
	"log/slog"
	"time"

	"bookfeed/internal/domain"
	"bookfeed/internal/infra"
	"bookfeed/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence. It is the only
// place one-time process initialization happens; components never guard
// their own setup with ad hoc flags.
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB)
func (b *Bootstrap) Initialize() error {
	slog.Info("Bootstrapping bookfeed...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized")

	// 4. Seed instrument metadata from config
	if err := b.seedInstruments(); err != nil {
		return err
	}
	slog.Info("Instrument registry ready", slog.Int("count", len(cfg.Instruments)))

	return nil
}

// seedInstruments upserts the configured instruments into the registry,
// preserving user state (favorites, watch history) across restarts.
func (b *Bootstrap) seedInstruments() error {
	for _, inst := range b.Config.DomainInstruments() {
		info := &domain.InstrumentInfo{
			Symbol:         inst.Symbol,
			Name:           inst.Symbol,
			PricePrecision: inst.PricePrecision,
			QtyPrecision:   inst.QtyPrecision,
			UpdatedAt:      time.Now(),
		}

		if existing, _ := b.Storage.GetInstrument(inst.Symbol); existing != nil {
			info.IsFavorite = existing.IsFavorite
			info.LastWatchedAt = existing.LastWatchedAt
			info.CreatedAt = existing.CreatedAt
		}

		if err := b.Storage.UpsertInstrument(info); err != nil {
			return err
		}
	}
	return nil
}

// InitialInstrument picks the instrument to watch at startup: the one the
// user last watched when it is still configured, otherwise the first entry.
func (b *Bootstrap) InitialInstrument() domain.Instrument {
	instruments := b.Config.DomainInstruments()

	if cfgMap, err := b.Storage.LoadConfigMap(); err == nil {
		if last, ok := cfgMap[storage.LastInstrumentKey]; ok {
			for _, inst := range instruments {
				if inst.Symbol == last {
					return inst
				}
			}
		}
	}
	return instruments[0]
}

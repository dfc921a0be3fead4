package persistence

import (
	"fmt"

	"github.com/tcriess/lightspeed-collab/config"
)

// NewPersister creates the journal configured in cfg. It returns nil (and no error) if no journal is configured.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "":
		return nil, nil

	case "buntdb":
		return NewBuntPersister(cfg)

	case "sqlite", "postgres":
		return NewGormPersister(cfg)

	default:
		return nil, fmt.Errorf("unknown persistence type %q", cfg.PersistenceConfig.Type)
	}
}

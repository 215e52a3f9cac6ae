package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/extractor"
	"sponsor-backend/internal/metrics"
	"sponsor-backend/internal/models"
	"sponsor-backend/internal/repository"
)

var (
	ErrZeroFactory    = errors.New("factory address must not be zero")
	ErrZeroExtractor  = errors.New("extractor variant must not be empty")
	ErrUnknownVariant = errors.New("unknown extractor variant")
	ErrUnknownFactory = errors.New("factory not registered")
	ErrFactoryListed  = repository.ErrDuplicateFactory
)

type registryEntry struct {
	factory   common.Address
	extractor extractor.Extractor
	label     string
}

// RegistryService maintains the account-factory whitelist: a dense,
// enumerable list mirrored in memory plus the persistent entries. Removal
// is swap-and-pop: the last entry moves into the freed slot so enumeration
// stays dense, with the moved entry's position rewritten in one step.
type RegistryService struct {
	repo repository.FactoryRepository
	pool common.Address // entrypoint bound into every extractor

	mu      sync.RWMutex
	entries []*registryEntry
	index   map[common.Address]int
}

func NewRegistryService(repo repository.FactoryRepository, pool common.Address) *RegistryService {
	return &RegistryService{
		repo:  repo,
		pool:  pool,
		index: make(map[common.Address]int),
	}
}

// Load hydrates the in-memory mirror from persistence. Called once at boot.
func (s *RegistryService) Load(ctx context.Context) error {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load factory registry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
	s.index = make(map[common.Address]int, len(rows))
	for _, row := range rows {
		ex, err := extractor.ByVariant(row.Extractor, s.pool)
		if err != nil {
			return fmt.Errorf("factory %s: %w", row.Factory, err)
		}
		addr := common.HexToAddress(row.Factory)
		s.index[addr] = len(s.entries)
		s.entries = append(s.entries, &registryEntry{
			factory:   addr,
			extractor: ex,
			label:     row.Label,
		})
	}
	metrics.RegisteredFactories.Set(float64(len(s.entries)))
	log.WithField("count", len(s.entries)).Info("Factory registry loaded")
	return nil
}

// Add whitelists a factory under an extractor variant.
func (s *RegistryService) Add(ctx context.Context, factory common.Address, variant, label string) error {
	if factory == (common.Address{}) {
		return ErrZeroFactory
	}
	if variant == "" {
		return ErrZeroExtractor
	}
	ex, err := extractor.ByVariant(variant, s.pool)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.index[factory]; exists {
		return repository.ErrDuplicateFactory
	}

	entry := &models.FactoryEntry{
		Factory:   strings.ToLower(factory.Hex()),
		Extractor: variant,
		Label:     label,
		Position:  len(s.entries),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return err
	}

	s.index[factory] = len(s.entries)
	s.entries = append(s.entries, &registryEntry{factory: factory, extractor: ex, label: label})
	metrics.RegisteredFactories.Set(float64(len(s.entries)))
	log.WithFields(log.Fields{
		"factory": factory.Hex(),
		"variant": variant,
	}).Info("Factory whitelisted")
	return nil
}

// Remove delists a factory swap-and-pop style.
func (s *RegistryService) Remove(ctx context.Context, factory common.Address) error {
	if factory == (common.Address{}) {
		return ErrZeroFactory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pos, exists := s.index[factory]
	if !exists {
		return ErrUnknownFactory
	}

	if err := s.repo.Delete(ctx, strings.ToLower(factory.Hex())); err != nil {
		return err
	}

	last := len(s.entries) - 1
	if pos != last {
		moved := s.entries[last]
		s.entries[pos] = moved
		s.index[moved.factory] = pos
		if err := s.repo.UpdatePosition(ctx, strings.ToLower(moved.factory.Hex()), pos); err != nil {
			log.WithError(err).WithField("factory", moved.factory.Hex()).
				Warn("Failed to persist moved registry position")
		}
	}
	s.entries = s.entries[:last]
	delete(s.index, factory)
	metrics.RegisteredFactories.Set(float64(len(s.entries)))
	log.WithField("factory", factory.Hex()).Info("Factory delisted")
	return nil
}

// ExtractorFor resolves the extractor bound to a factory.
func (s *RegistryService) ExtractorFor(factory common.Address) (extractor.Extractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, exists := s.index[factory]
	if !exists {
		return nil, ErrUnknownFactory
	}
	return s.entries[pos].extractor, nil
}

// IsSupported reports whether a factory is whitelisted.
func (s *RegistryService) IsSupported(factory common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.index[factory]
	return exists
}

// FactoryInfo is one enumerated registry entry.
type FactoryInfo struct {
	Factory  string `json:"factory"`
	Variant  string `json:"variant"`
	Label    string `json:"label,omitempty"`
	Position int    `json:"position"`
}

// List enumerates the registry in dense position order.
func (s *RegistryService) List() []FactoryInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FactoryInfo, len(s.entries))
	for i, e := range s.entries {
		out[i] = FactoryInfo{
			Factory:  e.factory.Hex(),
			Variant:  e.extractor.Variant(),
			Label:    e.label,
			Position: i,
		}
	}
	return out
}

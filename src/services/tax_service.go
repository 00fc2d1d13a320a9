package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
	"github.com/financoor/backend/src/taxengine"
)

const (
	// Breakdown results cached per commitment; identical requests hash to
	// the same key so repeated wizard polls never recompute.
	ckBreakdown = "res_breakdown_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type taxServiceImpl struct {
	engine      *taxengine.Engine
	reportCache *cache.Cache
}

func NewTaxService(engine *taxengine.Engine, reportCache *cache.Cache) TaxService {
	return &taxServiceImpl{
		engine:      engine,
		reportCache: reportCache,
	}
}

func (s *taxServiceImpl) Compute(req *models.TaxRequest) (*models.TaxBreakdown, models.Commitment, error) {
	com, err := commitment.Commitment(req)
	if err != nil {
		return nil, models.Commitment{}, err
	}

	cacheKey := fmt.Sprintf(ckBreakdown, com.Hex())
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for tax breakdown", "commitment", com.Hex())
		return cached.(*models.TaxBreakdown), com, nil
	}

	breakdown, err := s.engine.Compute(req)
	if err != nil {
		return nil, models.Commitment{}, err
	}

	s.reportCache.Set(cacheKey, breakdown, DefaultCacheExpiration)
	logger.L.Info("Computed tax breakdown", "commitment", com.Hex(), "rows", len(req.Ledger), "totalTax", breakdown.TotalTaxINR)
	return breakdown, com, nil
}

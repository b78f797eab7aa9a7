package jobs

import (
	"context"

	"cryptogram/internal/models"
	"cryptogram/internal/services"
)

// PriceCollectorJobName identifies the recurring price collection job.
const PriceCollectorJobName = "price-collector"

// NewPriceCollectorJob records a price snapshot. Feed failures are logged
// under the price feed error type and swallowed so the schedule keeps
// running.
func NewPriceCollectorJob(market *services.MarketService, errors *services.ErrorLogger) JobFunc {
	return func(ctx context.Context) error {
		if err := market.CollectPrices(ctx); err != nil {
			errors.LogError(ctx, models.ErrTypePriceFeedFailed, err, map[string]string{
				"job": PriceCollectorJobName,
			})
		}
		return nil
	}
}

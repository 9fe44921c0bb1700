package exchange

import (
	"go.uber.org/zap"

	"swapforge/internal/amm/pair"
	"swapforge/internal/shared/metrics"
)

// EventSink logs pair events and counts them as engine operations. It
// is handed to the factory so every created pair reports through it.
type EventSink struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewEventSink(logger *zap.Logger, m *metrics.Metrics) *EventSink {
	return &EventSink{logger: logger, metrics: m}
}

func (s *EventSink) PairSynced(e pair.SyncEvent) {
	s.metrics.Operations.WithLabelValues("sync").Inc()
	s.logger.Debug("Pair synced",
		zap.String("pair", e.Pair.Hex()),
		zap.String("reserve_a", e.ReserveA.Dec()),
		zap.String("reserve_b", e.ReserveB.Dec()),
	)
}

func (s *EventSink) LiquidityMinted(e pair.MintEvent) {
	s.metrics.Operations.WithLabelValues("mint").Inc()
	s.logger.Info("Liquidity minted",
		zap.String("pair", e.Pair.Hex()),
		zap.String("to", e.To.Hex()),
		zap.String("amount_a", e.AmountA.Dec()),
		zap.String("amount_b", e.AmountB.Dec()),
		zap.String("shares", e.Shares.Dec()),
	)
}

func (s *EventSink) LiquidityBurned(e pair.BurnEvent) {
	s.metrics.Operations.WithLabelValues("burn").Inc()
	s.logger.Info("Liquidity burned",
		zap.String("pair", e.Pair.Hex()),
		zap.String("to", e.To.Hex()),
		zap.String("amount_a", e.AmountA.Dec()),
		zap.String("amount_b", e.AmountB.Dec()),
		zap.String("shares", e.Shares.Dec()),
	)
}

func (s *EventSink) Swapped(e pair.SwapEvent) {
	s.metrics.Operations.WithLabelValues("swap").Inc()
	s.logger.Info("Swap executed",
		zap.String("pair", e.Pair.Hex()),
		zap.String("amount_a_in", e.AmountAIn.Dec()),
		zap.String("amount_b_in", e.AmountBIn.Dec()),
		zap.String("amount_a_out", e.AmountAOut.Dec()),
		zap.String("amount_b_out", e.AmountBOut.Dec()),
		zap.String("to", e.To.Hex()),
	)
}

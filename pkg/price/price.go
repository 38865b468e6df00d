package price

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"afri-swap/pkg/types"
)

const (
	// OracleDecimals is the fixed point scale of oracle answers
	OracleDecimals = 18

	maxConsecutiveFailures = 5
	openTimeout            = 30 * time.Second
)

var errNoAnswer = errors.New("oracle returned no price")

// Oracle is the ledger read the service wraps
type Oracle interface {
	LatestPrice(ctx context.Context, token common.Address) (*big.Int, error)
}

// Service reads display prices from the price oracle
type Service struct {
	oracle  Oracle
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewService creates a price service with its own circuit breaker
func NewService(oracle Oracle, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("price")
	return &Service{
		oracle:  oracle,
		breaker: newCircuitBreaker(logger),
		logger:  logger,
	}
}

func newCircuitBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "price-oracle",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= maxConsecutiveFailures {
				return true
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests > 20 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("price oracle seems down, stop allowing requests")
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				logger.Info("checking price oracle status")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				logger.Info("price oracle seems ok, restart allowing requests")
			}
		},
	})
}

// LatestPrice returns the oracle price of token. Failures are logged and
// reported as an invalid value, never as an error.
func (s *Service) LatestPrice(ctx context.Context, token types.Token) decimal.NullDecimal {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		raw, err := s.oracle.LatestPrice(ctx, token.LedgerAddress())
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, errNoAnswer
		}
		return raw, nil
	})
	if err != nil {
		s.logger.Warn("price unavailable", zap.String("token", token.Symbol), zap.Error(err))
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(decimal.NewFromBigInt(res.(*big.Int), -OracleDecimals))
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var ErrChainExhausted = errors.New("every step in the chain failed")

type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunUntilSuccess runs steps in order and stops at the first one that succeeds.
// It returns the name of that step, or ErrChainExhausted joined with each
// step's error.
func RunUntilSuccess(ctx context.Context, logger zerolog.Logger, steps ...Step) (string, error) {
	errs := make([]error, 0, len(steps)+1)
	errs = append(errs, ErrChainExhausted)
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := s.Run(ctx)
		if err == nil {
			logger.Debug().Str("step", s.Name).Msg("chain step succeeded")
			return s.Name, nil
		}
		logger.Warn().Str("step", s.Name).Err(err).Msg("chain step failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	return "", errors.Join(errs...)
}

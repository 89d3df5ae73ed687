package market

import (
	"context"

	"cryptonics/internal/market/warmer"
)

type warmTarget struct {
	s *Service
}

// WarmTarget exposes the landing queries to the warmer.
func (s *Service) WarmTarget() warmer.Market {
	return warmTarget{s: s}
}

func (w warmTarget) Coins(ctx context.Context, page int, currency string) error {
	_, err := w.s.Coins(ctx, page, currency)
	return err
}

func (w warmTarget) Exchanges(ctx context.Context) error {
	_, err := w.s.Exchanges(ctx)
	return err
}

func (w warmTarget) Global(ctx context.Context) error {
	_, err := w.s.Global(ctx)
	return err
}

func (w warmTarget) Trending(ctx context.Context) error {
	_, err := w.s.Trending(ctx)
	return err
}

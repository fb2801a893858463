package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/metrics"
	"github.com/aryan0dhankhar/bluecarbon/internal/workflow"
)

// PurchaseCredit transfers an available credit to actor. The receipt carries
// an informational price quote; no payment is processed.
func (s *RegistryService) PurchaseCredit(ctx context.Context, actor *domain.User, creditID string) (*Receipt, error) {
	ev, warning, err := s.apply(ctx, string(domain.ActionCorporatePurchase), workflow.PurchaseCredit{
		By:       actor,
		CreditID: creditID,
	}, actor)
	if err != nil {
		return nil, err
	}

	metrics.ObserveTrade("purchase", ev.Credit.Tons)
	s.logger.Info("credit purchased",
		slog.String("credit_id", ev.Credit.ID),
		slog.String("owner_id", ev.Credit.OwnerID),
		slog.Float64("tons", ev.Credit.Tons),
	)
	return &Receipt{
		Credit:   ev.Credit,
		Audit:    auditPtr(ev),
		PriceUSD: ev.Credit.Tons * s.opts.CreditPriceUSD,
		Warning:  warning,
	}, nil
}

// RetireCredit permanently retires a credit owned by actor
func (s *RegistryService) RetireCredit(ctx context.Context, actor *domain.User, creditID, note string) (*Receipt, error) {
	ev, warning, err := s.apply(ctx, string(domain.ActionCorporateRetire), workflow.RetireCredit{
		By:       actor,
		CreditID: creditID,
		Note:     strings.TrimSpace(note),
	}, actor)
	if err != nil {
		return nil, err
	}

	metrics.ObserveTrade("retire", ev.Credit.Tons)
	s.logger.Info("credit retired",
		slog.String("credit_id", ev.Credit.ID),
		slog.String("retired_by", ev.Credit.RetiredBy),
	)
	return &Receipt{Credit: ev.Credit, Audit: auditPtr(ev), Warning: warning}, nil
}

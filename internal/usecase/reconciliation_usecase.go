package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerreplay/internal/domain"
)

// ReconciliationUseCase recomputes account balances from the transaction
// history and compares them with the ledger.
type ReconciliationUseCase struct {
	history HistoryStore
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(history HistoryStore) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		history: history,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	Client          domain.ClientID
	RecordedTotal   decimal.Decimal
	CalculatedTotal decimal.Decimal
	RecordedHeld    decimal.Decimal
	CalculatedHeld  decimal.Decimal
	IsReconciled    bool
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	CheckedAt          time.Time
}

type expected struct {
	total decimal.Decimal
	held  decimal.Decimal
}

// Reconcile checks every account against the history:
//   - total is the sum of deposits minus withdrawals, where a charged back
//     deposit contributes nothing and a charged back withdrawal counts twice;
//   - held is the sum of entries currently disputed;
//   - total equals available + held and no balance is negative.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, accounts map[domain.ClientID]domain.AccountSnapshot) (*ReconciliationReport, error) {
	calculated := make(map[domain.ClientID]*expected, len(accounts))

	err := uc.history.Scan(ctx, func(entry *domain.HistoryEntry) error {
		exp, ok := calculated[entry.Client]
		if !ok {
			exp = &expected{total: decimal.Zero, held: decimal.Zero}
			calculated[entry.Client] = exp
		}

		switch entry.Kind {
		case domain.TxKindDeposit:
			if entry.Status != domain.TxStatusChargedBack {
				exp.total = exp.total.Add(entry.Amount)
			}
		case domain.TxKindWithdrawal:
			exp.total = exp.total.Sub(entry.Amount)
			if entry.Status == domain.TxStatusChargedBack {
				exp.total = exp.total.Sub(entry.Amount)
			}
		}

		if entry.Status == domain.TxStatusDisputed {
			exp.held = exp.held.Add(entry.Amount)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalAccounts: len(accounts),
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for client, snap := range accounts {
		exp, ok := calculated[client]
		if !ok {
			exp = &expected{total: decimal.Zero, held: decimal.Zero}
		}

		result := &ReconciliationResult{
			Client:          client,
			RecordedTotal:   snap.Total,
			CalculatedTotal: exp.total,
			RecordedHeld:    snap.Held,
			CalculatedHeld:  exp.held,
		}
		result.IsReconciled = snap.Total.Equal(exp.total) &&
			snap.Held.Equal(exp.held) &&
			snap.Total.Equal(snap.Available.Add(snap.Held)) &&
			!snap.Available.IsNegative() &&
			!snap.Held.IsNegative()

		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}

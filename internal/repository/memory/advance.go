package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/shift-payroll-go/internal/domain/advance"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/period"
)

type loanRepo struct{ s *Store }

func (r loanRepo) GetByID(_ context.Context, id string) (advance.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("loans.GetByID"); err != nil {
		return advance.Loan{}, err
	}
	l, ok := r.s.data.loans[id]
	if !ok {
		return advance.Loan{}, advance.ErrLoanNotFound
	}
	return l, nil
}

// GetByIDForUpdate relies on WithinTx serializing transactions.
func (r loanRepo) GetByIDForUpdate(ctx context.Context, id string) (advance.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r loanRepo) ListActiveByEmployee(_ context.Context, employeeID string) ([]advance.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("loans.ListActiveByEmployee"); err != nil {
		return nil, err
	}
	var out []advance.Loan
	for _, l := range r.s.data.loans {
		if l.EmployeeID == employeeID && l.IsActive() {
			out = append(out, l)
		}
	}
	sortLoans(out)
	return out, nil
}

func (r loanRepo) ListActive(_ context.Context) ([]advance.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []advance.Loan
	for _, l := range r.s.data.loans {
		if l.IsActive() {
			out = append(out, l)
		}
	}
	sortLoans(out)
	return out, nil
}

func (r loanRepo) Update(_ context.Context, loan advance.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("loans.Update"); err != nil {
		return err
	}
	if _, ok := r.s.data.loans[loan.ID]; !ok {
		return advance.ErrLoanNotFound
	}
	loan.UpdatedAt = r.s.now()
	r.s.data.loans[loan.ID] = loan
	return nil
}

func sortLoans(loans []advance.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].CreatedAt.Equal(loans[j].CreatedAt) {
			return loans[i].CreatedAt.Before(loans[j].CreatedAt)
		}
		return loans[i].ID < loans[j].ID
	})
}

type skipRepo struct{ s *Store }

func skipKey(loanID string, p period.Period) string {
	return loanID + "|" + p.String()
}

func (r skipRepo) GetActive(_ context.Context, loanID string, p period.Period) (advance.SkipRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("skips.GetActive"); err != nil {
		return advance.SkipRequest{}, err
	}
	sr, ok := r.s.data.skips[skipKey(loanID, p)]
	if !ok || !sr.Active {
		return advance.SkipRequest{}, advance.ErrSkipRequestNotFound
	}
	return sr, nil
}

func (r skipRepo) Activate(_ context.Context, req advance.SkipRequest) (advance.SkipRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("skips.Activate"); err != nil {
		return advance.SkipRequest{}, err
	}
	now := r.s.now()
	key := skipKey(req.LoanID, req.Period)
	if existing, ok := r.s.data.skips[key]; ok {
		existing.Reason = req.Reason
		existing.Active = true
		existing.UpdatedAt = now
		r.s.data.skips[key] = existing
		return existing, nil
	}
	if req.ID == "" {
		req.ID = newID()
	}
	req.Active = true
	req.CreatedAt = now
	req.UpdatedAt = now
	r.s.data.skips[key] = req
	return req, nil
}

func (r skipRepo) Deactivate(_ context.Context, loanID string, p period.Period) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("skips.Deactivate"); err != nil {
		return err
	}
	key := skipKey(loanID, p)
	sr, ok := r.s.data.skips[key]
	if !ok || !sr.Active {
		return advance.ErrSkipRequestNotFound
	}
	sr.Active = false
	sr.UpdatedAt = r.s.now()
	r.s.data.skips[key] = sr
	return nil
}

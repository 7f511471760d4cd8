package inventory

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Service owns the stock balances and the movement ledger. Reserve hands out
// whatever is available rather than failing on shortfall; callers decide what
// a partial hold means for them.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Reserve holds up to qty units of a product and reports how many it actually
// held. A product with no balance row yields a zero hold, not an error.
func (s *Service) Reserve(ctx context.Context, productID, qty int64) (int64, error) {
	var held int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetBalanceForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		held = min(qty, b.Available())
		if held <= 0 {
			held = 0
			return nil
		}
		b.Reserved += held
		if err := repo.UpsertBalance(ctx, b); err != nil {
			return err
		}
		return repo.InsertMovement(ctx, &Movement{
			ProductID: productID,
			Kind:      MovementReserve,
			Quantity:  held,
		})
	})
	if err != nil {
		return 0, err
	}
	return held, nil
}

// Release returns qty previously held units to the available pool. Releasing
// more than is reserved clamps to zero instead of going negative.
func (s *Service) Release(ctx context.Context, productID, qty int64) error {
	if qty <= 0 {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetBalanceForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		released := min(qty, b.Reserved)
		if released <= 0 {
			return nil
		}
		b.Reserved -= released
		if err := repo.UpsertBalance(ctx, b); err != nil {
			return err
		}
		return repo.InsertMovement(ctx, &Movement{
			ProductID: productID,
			Kind:      MovementRelease,
			Quantity:  released,
		})
	})
}

// Commit converts qty held units into a hard deduction from on-hand stock.
func (s *Service) Commit(ctx context.Context, productID, qty int64) error {
	if qty <= 0 {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetBalanceForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		committed := min(qty, b.Reserved)
		b.Reserved -= committed
		b.OnHand -= committed
		if b.OnHand < 0 {
			b.OnHand = 0
		}
		if err := repo.UpsertBalance(ctx, b); err != nil {
			return err
		}
		return repo.InsertMovement(ctx, &Movement{
			ProductID: productID,
			Kind:      MovementCommit,
			Quantity:  committed,
		})
	})
}

// Adjust moves on-hand stock by delta (receiving, stocktake corrections).
// An empty reference gets a generated one so every ledger row stays traceable.
func (s *Service) Adjust(ctx context.Context, productID, delta int64, reference string) (*Balance, error) {
	if reference == "" {
		reference = "adj-" + uuid.NewString()
	}
	var out *Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetBalanceForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		b.OnHand += delta
		if b.OnHand < 0 {
			b.OnHand = 0
		}
		if err := repo.UpsertBalance(ctx, b); err != nil {
			return err
		}
		out = b
		return repo.InsertMovement(ctx, &Movement{
			ProductID: productID,
			Kind:      MovementAdjust,
			Quantity:  delta,
			Reference: reference,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock adjusted",
		slog.Int64("product_id", productID),
		slog.Int64("delta", delta),
		slog.Int64("on_hand", out.OnHand))
	return out, nil
}

// Get returns the current balance for a product.
func (s *Service) Get(ctx context.Context, productID int64) (*Balance, error) {
	return s.repo.GetBalance(ctx, productID)
}

// Movements returns recent ledger rows for a product, newest first.
func (s *Service) Movements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	return s.repo.ListMovements(ctx, productID, limit)
}

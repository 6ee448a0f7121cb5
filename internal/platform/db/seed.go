package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"staffhub/internal/domain/staff"
)

// Seed inserts the default roster when the employee table is empty. The
// roster's numeric ids are kept as legacy ids so records written against
// them keep resolving.
func Seed(ctx context.Context, store staff.Store) error {
	existing, err := store.ListEmployees(ctx)
	if err != nil {
		return fmt.Errorf("seed: list employees: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	inserted := 0
	for _, emp := range staff.DefaultRoster(time.Now().UTC()) {
		emp.LegacyID = emp.ID
		emp.ID = ""
		if _, err := store.CreateEmployee(ctx, emp); err != nil {
			if errors.Is(err, staff.ErrConflict) {
				continue
			}
			return fmt.Errorf("seed employee %s: %w", emp.Name, err)
		}
		inserted++
	}
	slog.Info("seeded employee roster", "count", inserted)
	return nil
}

package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"techline/models"
)

func TestSaveWithConflictRecovery_ExistingRowShortCircuits(t *testing.T) {
	lookup := func() (*models.House, error) {
		return &models.House{ID: 7, IsActive: false}, nil
	}
	insert := func() (SaveResult, error) {
		t.Fatal("insert must not run when the row already exists")
		return SaveResult{}, nil
	}

	result, err := saveWithConflictRecovery("Тимирязева", "4", lookup, insert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HouseID != 7 || result.Created {
		t.Fatalf("expected existing id 7, created=false, got %+v", result)
	}
}

func TestSaveWithConflictRecovery_CreatesWhenMissing(t *testing.T) {
	lookup := func() (*models.House, error) { return nil, nil }
	insert := func() (SaveResult, error) {
		return SaveResult{HouseID: 12, Created: true}, nil
	}

	result, err := saveWithConflictRecovery("Тимирязева", "4", lookup, insert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HouseID != 12 || !result.Created {
		t.Fatalf("expected created row 12, got %+v", result)
	}
}

func TestSaveWithConflictRecovery_LostRaceReturnsWinner(t *testing.T) {
	calls := 0
	lookup := func() (*models.House, error) {
		calls++
		if calls == 1 {
			return nil, nil
		}
		return &models.House{ID: 9}, nil
	}
	insert := func() (SaveResult, error) {
		return SaveResult{}, fmt.Errorf("insert house: %w", &pgconn.PgError{Code: "23505"})
	}

	result, err := saveWithConflictRecovery("Тимирязева", "4", lookup, insert)
	if err != nil {
		t.Fatalf("unique violation must be recovered, got: %v", err)
	}
	if result.HouseID != 9 || result.Created {
		t.Fatalf("expected winner id 9, created=false, got %+v", result)
	}
	if calls != 2 {
		t.Fatalf("expected pre-check plus one refetch, got %d lookups", calls)
	}
}

func TestSaveWithConflictRecovery_ConflictWithoutRow(t *testing.T) {
	lookup := func() (*models.House, error) { return nil, nil }
	insert := func() (SaveResult, error) {
		return SaveResult{}, &pgconn.PgError{Code: "23505"}
	}

	if _, err := saveWithConflictRecovery("Тимирязева", "4", lookup, insert); err == nil {
		t.Fatal("a conflict whose winner cannot be found must surface an error")
	}
}

func TestSaveWithConflictRecovery_OtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("connection reset")
	lookup := func() (*models.House, error) { return nil, nil }
	insert := func() (SaveResult, error) { return SaveResult{}, boom }

	_, err := saveWithConflictRecovery("Тимирязева", "4", lookup, insert)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the insert error to pass through, got: %v", err)
	}
}

func TestSaveWithConflictRecovery_LookupError(t *testing.T) {
	lookup := func() (*models.House, error) { return nil, errors.New("connection reset") }
	insert := func() (SaveResult, error) {
		t.Fatal("insert must not run when the pre-check fails")
		return SaveResult{}, nil
	}

	if _, err := saveWithConflictRecovery("Тимирязева", "4", lookup, insert); err == nil {
		t.Fatal("expected the lookup error to surface")
	}
}

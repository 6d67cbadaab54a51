package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lmoreira/fintrack-api/internal/domain"
)

func TestCreateLedger_DefaultsCurrency(t *testing.T) {
	store := newMockStore()
	svc := newTestLedgerService(store)

	ledger, err := svc.CreateLedger(context.Background(), "user-1", "Household", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ledger.Currency != "EUR" {
		t.Errorf("expected default currency EUR, got %s", ledger.Currency)
	}
	if ledger.ID == "" {
		t.Error("expected generated ledger id")
	}
	if ledger.OwnerID != "user-1" {
		t.Errorf("expected owner user-1, got %s", ledger.OwnerID)
	}
}

func TestCreateLedger_RequiresName(t *testing.T) {
	svc := newTestLedgerService(newMockStore())

	_, err := svc.CreateLedger(context.Background(), "user-1", "", "EUR")
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "name" {
		t.Errorf("expected field 'name', got %s", verr.Field)
	}
}

func TestUpdateLedger_PartialFields(t *testing.T) {
	store := newMockStore()
	svc := newTestLedgerService(store)
	ledgerID := seedLedger(store, "user-1")

	updated, err := svc.UpdateLedger(context.Background(), "user-1", ledgerID, "Renamed", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("expected name Renamed, got %s", updated.Name)
	}
	if updated.Currency != "EUR" {
		t.Errorf("expected currency untouched, got %s", updated.Currency)
	}
}

func TestDeleteLedger_WrongOwner(t *testing.T) {
	store := newMockStore()
	svc := newTestLedgerService(store)
	ledgerID := seedLedger(store, "user-1")

	err := svc.DeleteLedger(context.Background(), "someone-else", ledgerID)
	var nferr *domain.ErrNotFound
	if !errors.As(err, &nferr) {
		t.Fatalf("expected not-found error for wrong owner, got %v", err)
	}
	if _, ok := store.ledgers[ledgerID]; !ok {
		t.Error("ledger should not have been deleted")
	}
}

func TestListLedgers_FiltersByOwner(t *testing.T) {
	store := newMockStore()
	svc := newTestLedgerService(store)
	seedLedger(store, "user-1")
	seedLedger(store, "user-1")
	seedLedger(store, "user-2")

	ledgers, err := svc.ListLedgers(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ledgers) != 2 {
		t.Errorf("expected 2 ledgers, got %d", len(ledgers))
	}
}

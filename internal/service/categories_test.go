package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lmoreira/fintrack-api/internal/domain"
	"github.com/lmoreira/fintrack-api/internal/service"
)

func TestCreateCategory_Validation(t *testing.T) {
	store := newMockStore()
	svc := newTestLedgerService(store)
	ledgerID := seedLedger(store, "user-1")
	leafID := seedCategory(store, ledgerID, "Salary", domain.CategoryTypeIncome, false, "", 0)

	tests := []struct {
		name  string
		input service.CategoryInput
		field string
	}{
		{"missing name", service.CategoryInput{Type: "income"}, "name"},
		{"bad type", service.CategoryInput{Name: "X", Type: "asset"}, "type"},
		{"parent is a leaf", service.CategoryInput{Name: "X", Type: "income", ParentID: leafID}, "parent_id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCategory(context.Background(), "user-1", ledgerID, &tc.input)
			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestCategoryTree_ExpenseRollup(t *testing.T) {
	store := newMockStore()
	svc := newTestLedgerService(store)
	ledgerID := seedLedger(store, "user-1")
	groupID := seedCategory(store, ledgerID, "Living", domain.CategoryTypeExpense, true, "", 0)
	seedCategory(store, ledgerID, "Groceries", domain.CategoryTypeExpense, false, groupID, -300)
	seedCategory(store, ledgerID, "Rent", domain.CategoryTypeExpense, false, groupID, -900)

	rows, err := svc.CategoryTree(context.Background(), "user-1", ledgerID, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	for _, r := range rows {
		if r.Category.ID == groupID {
			if r.Balance != -1200 {
				t.Errorf("expected group rollup -1200, got %f", r.Balance)
			}
			// Negative balance is the expected sign for expenses.
			if r.Tone != "group" {
				t.Errorf("expected group tone, got %s", r.Tone)
			}
		}
	}
}

func TestDeleteCategory_RejectsWhenChildrenExist(t *testing.T) {
	store := newMockStore()
	svc := newTestLedgerService(store)
	ledgerID := seedLedger(store, "user-1")
	groupID := seedCategory(store, ledgerID, "Living", domain.CategoryTypeExpense, true, "", 0)
	seedCategory(store, ledgerID, "Rent", domain.CategoryTypeExpense, false, groupID, 0)

	err := svc.DeleteCategory(context.Background(), "user-1", ledgerID, groupID)
	var cerr *domain.ErrConflict
	if !errors.As(err, &cerr) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

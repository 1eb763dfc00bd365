package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go-pharmacy-pos/internal/event"
	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type salesFixture struct {
	store    *memStore
	sales    *fakeSales
	ledger   *fakeLedger
	captured *captureEvents
	service  SalesService
}

func newSalesFixture() *salesFixture {
	store := newMemStore()
	sales := &fakeSales{s: store}
	ledger := &fakeLedger{s: store}
	captured := &captureEvents{}
	svc := NewSalesService(
		&fakeProducts{s: store},
		ledger,
		sales,
		&fakeCustomers{s: store},
		memTx{s: store},
		event.NewPublisher(captured),
	)
	return &salesFixture{
		store:    store,
		sales:    sales,
		ledger:   ledger,
		captured: captured,
		service:  svc,
	}
}

func checkout(items ...CheckoutItem) *CheckoutRequest {
	return &CheckoutRequest{
		Items:         items,
		PaymentMethod: model.PaymentCash,
	}
}

func TestCreateOrderDeductsStockAndWritesLedger(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Paracetamol 500mg", "PCM-500", 10, "5000")

	order, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 3}), "u1", "Cashier One", "c1@pharmacy.test")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if got := f.store.products[p.ID].Stock; got != 7 {
		t.Errorf("stock = %d, want 7", got)
	}
	if !order.GrandTotal.Equal(decimal.RequireFromString("15000")) {
		t.Errorf("grand total = %s, want 15000", order.GrandTotal)
	}
	if order.Status != model.OrderCompleted {
		t.Errorf("status = %s, want completed", order.Status)
	}
	if !order.TotalsConsistent() {
		t.Error("order totals are inconsistent")
	}

	want := model.FormatInvoiceNumber(time.Now(), 1)
	if order.InvoiceNumber != want {
		t.Errorf("invoice = %s, want %s", order.InvoiceNumber, want)
	}

	refType := model.RefSalesOrder
	refID := order.ID
	entries, err := f.ledger.Find(repository.LedgerFilter{ReferenceType: &refType, ReferenceID: &refID})
	if err != nil {
		t.Fatalf("ledger find: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].Type != model.LedgerSale || entries[0].Quantity != 3 {
		t.Errorf("ledger entry = %s qty %d, want sale qty 3", entries[0].Type, entries[0].Quantity)
	}
	if entries[0].Notes != order.InvoiceNumber {
		t.Errorf("ledger notes = %s, want invoice number", entries[0].Notes)
	}

	if got := f.captured.byType(event.TypeSaleCompleted); len(got) != 1 {
		t.Errorf("sale.completed events = %d, want 1", len(got))
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Amoxicillin 500mg", "AMX-500", 2, "12000")

	_, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 5}), "u1", "", "")

	var insufficient *model.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if insufficient.Requested != 5 || insufficient.Available != 2 {
		t.Errorf("requested/available = %d/%d, want 5/2", insufficient.Requested, insufficient.Available)
	}

	if got := f.store.products[p.ID].Stock; got != 2 {
		t.Errorf("stock = %d, want 2 (unchanged)", got)
	}
	if len(f.store.orders) != 0 {
		t.Errorf("orders = %d, want 0", len(f.store.orders))
	}
	if len(f.store.ledger) != 0 {
		t.Errorf("ledger entries = %d, want 0", len(f.store.ledger))
	}
}

func TestCreateOrderMultiLineRollsBackAtomically(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Vitamin C", "VIT-C", 20, "3000")
	ghost := uuid.New()

	_, err := f.service.CreateOrder(checkout(
		CheckoutItem{ProductID: p.ID, Quantity: 4},
		CheckoutItem{ProductID: ghost, Quantity: 1},
	), "u1", "", "")

	var notFound *model.ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want ProductNotFoundError", err)
	}
	if notFound.ProductID != ghost {
		t.Errorf("err product = %s, want %s", notFound.ProductID, ghost)
	}

	// The first line's deduction must have been rolled back.
	if got := f.store.products[p.ID].Stock; got != 20 {
		t.Errorf("stock = %d, want 20", got)
	}
	if len(f.store.orders) != 0 || len(f.store.ledger) != 0 {
		t.Errorf("orders/ledger = %d/%d, want 0/0", len(f.store.orders), len(f.store.ledger))
	}
}

func TestCreateOrderRejectsInvalidQuantity(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Ibuprofen", "IBU-400", 10, "8000")

	for _, qty := range []int{0, -3} {
		_, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: qty}), "u1", "", "")
		var invalid *model.InvalidQuantityError
		if !errors.As(err, &invalid) {
			t.Errorf("qty %d: err = %v, want InvalidQuantityError", qty, err)
		}
	}
	if got := f.store.products[p.ID].Stock; got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
}

func TestCreateOrderRejectsNegativeDiscountAndFee(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Cough Syrup", "CS-100", 10, "20000")

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 1})
	req.Discount = decimal.RequireFromString("-500")
	if _, err := f.service.CreateOrder(req, "u1", "", ""); !errors.Is(err, model.ErrNegativeAmount) {
		t.Errorf("negative discount: err = %v, want ErrNegativeAmount", err)
	}

	req = checkout(CheckoutItem{ProductID: p.ID, Quantity: 1})
	req.AdditionalFee = decimal.RequireFromString("-100")
	if _, err := f.service.CreateOrder(req, "u1", "", ""); !errors.Is(err, model.ErrNegativeAmount) {
		t.Errorf("negative fee: err = %v, want ErrNegativeAmount", err)
	}
}

func TestCreateOrderAppliesDiscountAndFee(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Bandage", "BND-01", 50, "2500")

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 4})
	req.Discount = decimal.RequireFromString("1000")
	req.AdditionalFee = decimal.RequireFromString("500")

	order, err := f.service.CreateOrder(req, "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	// 4 * 2500 - 1000 + 500
	if !order.GrandTotal.Equal(decimal.RequireFromString("9500")) {
		t.Errorf("grand total = %s, want 9500", order.GrandTotal)
	}
	if !order.TotalsConsistent() {
		t.Error("order totals are inconsistent")
	}
}

func TestCreateOrderRejectsDiscountExceedingSubtotal(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Gauze", "GZ-01", 10, "1000")

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 1})
	req.Discount = decimal.RequireFromString("5000")

	if _, err := f.service.CreateOrder(req, "u1", "", ""); !errors.Is(err, model.ErrNegativeAmount) {
		t.Fatalf("err = %v, want ErrNegativeAmount", err)
	}
	if got := f.store.products[p.ID].Stock; got != 10 {
		t.Errorf("stock = %d, want 10 (rolled back)", got)
	}
}

func TestCreateOrderRejectsInactiveProduct(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Recalled Med", "RCL-01", 10, "9000")
	f.store.products[p.ID].Status = model.ProductInactive

	if _, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 1}), "u1", "", ""); err == nil {
		t.Fatal("expected error for inactive product")
	}
	if got := f.store.products[p.ID].Stock; got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
}

func TestCreateOrderSnapshotsCustomer(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Thermometer", "THM-01", 5, "45000")
	customer := &model.Customer{Name: "Budi", Phone: "0812000111"}
	customer.ID = uuid.New()
	f.store.customers[customer.ID] = customer

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 1})
	req.CustomerID = &customer.ID

	order, err := f.service.CreateOrder(req, "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.CustomerName != "Budi" || order.CustomerPhone != "0812000111" {
		t.Errorf("snapshot = %s/%s, want Budi/0812000111", order.CustomerName, order.CustomerPhone)
	}

	// Later edits to the customer must not affect the stored order.
	customer.Name = "Renamed"
	stored := f.store.orders[order.ID]
	if stored.CustomerName != "Budi" {
		t.Errorf("stored snapshot = %s, want Budi", stored.CustomerName)
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Face Mask", "MSK-01", 10, "1500")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 6}), "u1", "", "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var insufficient *model.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	if got := f.store.products[p.ID].Stock; got != 4 {
		t.Errorf("final stock = %d, want 4", got)
	}
	if len(f.store.orders) != 1 {
		t.Errorf("orders = %d, want 1", len(f.store.orders))
	}
	if len(f.store.ledger) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(f.store.ledger))
	}
}

func TestConcurrentCheckoutsGetDistinctInvoices(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Hand Sanitizer", "HS-01", 1000, "10000")

	const n = 8
	var wg sync.WaitGroup
	invoices := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 1}), "u1", "", "")
			if err != nil {
				t.Errorf("CreateOrder: %v", err)
				return
			}
			invoices[i] = order.InvoiceNumber
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, inv := range invoices {
		if seen[inv] {
			t.Errorf("duplicate invoice number %s", inv)
		}
		seen[inv] = true
	}
	if len(seen) != n {
		t.Errorf("distinct invoices = %d, want %d", len(seen), n)
	}
}

func TestCreateOrderRetriesOnInvoiceCollision(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Eye Drops", "ED-01", 10, "25000")

	// Two collisions, then success on the third attempt.
	f.sales.createErrs = []error{gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey}

	order, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 2}), "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order == nil {
		t.Fatal("order is nil")
	}
	// The failed attempts rolled back; exactly one deduction survives.
	if got := f.store.products[p.ID].Stock; got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
	if len(f.store.ledger) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(f.store.ledger))
	}
}

func TestCreateOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Syringe", "SYR-01", 10, "4000")

	f.sales.createErrs = []error{gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey, gorm.ErrDuplicatedKey}

	_, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 1}), "u1", "", "")
	if !errors.Is(err, model.ErrInvoiceConflict) {
		t.Fatalf("err = %v, want ErrInvoiceConflict", err)
	}
	if got := f.store.products[p.ID].Stock; got != 10 {
		t.Errorf("stock = %d, want 10 (all attempts rolled back)", got)
	}
	if len(f.store.orders) != 0 || len(f.store.ledger) != 0 {
		t.Errorf("orders/ledger = %d/%d, want 0/0", len(f.store.orders), len(f.store.ledger))
	}
}

func TestHeldOrderDoesNotTouchStock(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Insulin", "INS-01", 6, "90000")

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 2})
	req.Hold = true

	order, err := f.service.CreateOrder(req, "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != model.OrderPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if got := f.store.products[p.ID].Stock; got != 6 {
		t.Errorf("stock = %d, want 6 (untouched)", got)
	}
	if len(f.store.ledger) != 0 {
		t.Errorf("ledger entries = %d, want 0", len(f.store.ledger))
	}
	if got := f.captured.byType(event.TypeSaleCompleted); len(got) != 0 {
		t.Errorf("sale.completed events = %d, want 0 for a held order", len(got))
	}
}

func TestConfirmOrderDeductsStockAndCompletes(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Insulin", "INS-01", 6, "90000")

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 2})
	req.Hold = true
	held, err := f.service.CreateOrder(req, "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	confirmed, err := f.service.ConfirmOrder(held.ID, "u2", "Pharmacist", "ph@pharmacy.test")
	if err != nil {
		t.Fatalf("ConfirmOrder: %v", err)
	}
	if confirmed.Status != model.OrderCompleted {
		t.Errorf("status = %s, want completed", confirmed.Status)
	}
	if confirmed.InvoiceNumber != held.InvoiceNumber {
		t.Errorf("invoice changed on confirm: %s != %s", confirmed.InvoiceNumber, held.InvoiceNumber)
	}
	if got := f.store.products[p.ID].Stock; got != 4 {
		t.Errorf("stock = %d, want 4", got)
	}
	if len(f.store.ledger) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(f.store.ledger))
	}

	// Confirming twice must fail and must not deduct again.
	if _, err := f.service.ConfirmOrder(held.ID, "u2", "", ""); !errors.Is(err, model.ErrOrderNotPending) {
		t.Errorf("second confirm: err = %v, want ErrOrderNotPending", err)
	}
	if got := f.store.products[p.ID].Stock; got != 4 {
		t.Errorf("stock after double confirm = %d, want 4", got)
	}
}

func TestConfirmOrderFailsWhenStockRanOut(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Antiseptic", "ANT-01", 5, "7000")

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 4})
	req.Hold = true
	held, err := f.service.CreateOrder(req, "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// Someone else buys the stock before the hold is confirmed.
	if _, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 3}), "u3", "", ""); err != nil {
		t.Fatalf("competing order: %v", err)
	}

	_, err = f.service.ConfirmOrder(held.ID, "u1", "", "")
	var insufficient *model.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if f.store.orders[held.ID].Status != model.OrderPending {
		t.Error("held order should stay pending after failed confirm")
	}
	if got := f.store.products[p.ID].Stock; got != 2 {
		t.Errorf("stock = %d, want 2", got)
	}
}

func TestDeletePendingOrder(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Plaster", "PLS-01", 10, "1500")

	req := checkout(CheckoutItem{ProductID: p.ID, Quantity: 1})
	req.Hold = true
	held, err := f.service.CreateOrder(req, "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if err := f.service.DeletePendingOrder(held.ID, "u1"); err != nil {
		t.Fatalf("DeletePendingOrder: %v", err)
	}
	if len(f.store.orders) != 0 {
		t.Errorf("orders = %d, want 0", len(f.store.orders))
	}
	// Deleting a held order reverses nothing.
	if got := f.store.products[p.ID].Stock; got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
}

func TestDeleteCompletedOrderRefused(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Plaster", "PLS-01", 10, "1500")

	order, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 1}), "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if err := f.service.DeletePendingOrder(order.ID, "u1"); !errors.Is(err, model.ErrOrderNotPending) {
		t.Fatalf("err = %v, want ErrOrderNotPending", err)
	}
	if len(f.store.orders) != 1 {
		t.Errorf("orders = %d, want 1 (completed orders are immutable)", len(f.store.orders))
	}
}

func TestInvoiceSequenceIncrementsWithinDay(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Zinc Tablets", "ZNC-01", 100, "6000")

	var last string
	for i := 1; i <= 3; i++ {
		order, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 1}), "u1", "", "")
		if err != nil {
			t.Fatalf("CreateOrder #%d: %v", i, err)
		}
		want := model.FormatInvoiceNumber(time.Now(), i)
		if order.InvoiceNumber != want {
			t.Errorf("invoice #%d = %s, want %s", i, order.InvoiceNumber, want)
		}
		last = order.InvoiceNumber
	}
	if seq, err := model.ParseInvoiceSequence(last); err != nil || seq != 3 {
		t.Errorf("ParseInvoiceSequence(%s) = %d, %v", last, seq, err)
	}
}

func TestInvoiceSequenceAdvancesPastFourDigits(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Zinc Tablets", "ZNC-01", 100, "6000")

	// Seed today's sequence at 9999. The next number grows a digit, and a
	// string comparison would rank INV/.../10000 below INV/.../9999.
	seeded := &model.SalesOrder{
		InvoiceNumber: model.FormatInvoiceNumber(time.Now(), 9999),
		Status:        model.OrderCompleted,
	}
	seeded.ID = uuid.New()
	seeded.CreatedAt = time.Now()
	f.store.orders[seeded.ID] = seeded

	for i, wantSeq := range []int{10000, 10001} {
		order, err := f.service.CreateOrder(checkout(CheckoutItem{ProductID: p.ID, Quantity: 1}), "u1", "", "")
		if err != nil {
			t.Fatalf("CreateOrder #%d: %v", i+1, err)
		}
		want := model.FormatInvoiceNumber(time.Now(), wantSeq)
		if order.InvoiceNumber != want {
			t.Errorf("invoice #%d = %s, want %s", i+1, order.InvoiceNumber, want)
		}
	}
}

func TestCreateOrderDuplicateProductLinesStaySeparate(t *testing.T) {
	f := newSalesFixture()
	p := f.store.addProduct("Cotton", "CTN-01", 10, "2000")

	order, err := f.service.CreateOrder(checkout(
		CheckoutItem{ProductID: p.ID, Quantity: 2},
		CheckoutItem{ProductID: p.ID, Quantity: 3},
	), "u1", "", "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("lines = %d, want 2 (no merging)", len(order.Lines))
	}
	if got := f.store.products[p.ID].Stock; got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
	if !order.GrandTotal.Equal(decimal.RequireFromString("10000")) {
		t.Errorf("grand total = %s, want 10000", order.GrandTotal)
	}
}

package service

import (
	"strings"
	"sync"
	"time"

	"go-pharmacy-pos/internal/event"
	"go-pharmacy-pos/internal/model"
	"go-pharmacy-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore backs the fake repositories with plain maps. One mutex serializes
// whole transactions, mirroring the row locks the SQL repositories take with
// FOR UPDATE, so the concurrency tests exercise the same interleavings the
// database would allow.
type memStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*model.Product
	ledger    []model.LedgerEntry
	orders    map[uuid.UUID]*model.SalesOrder
	customers map[uuid.UUID]*model.Customer
	sessions  map[uuid.UUID]*model.RegisterSession
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[uuid.UUID]*model.Product),
		orders:    make(map[uuid.UUID]*model.SalesOrder),
		customers: make(map[uuid.UUID]*model.Customer),
		sessions:  make(map[uuid.UUID]*model.RegisterSession),
	}
}

func (s *memStore) addProduct(name, sku string, stock int, price string) *model.Product {
	p := &model.Product{
		SKU:    sku,
		Name:   name,
		Stock:  stock,
		Unit:   "pcs",
		Price:  decimal.RequireFromString(price),
		Status: model.ProductActive,
	}
	p.ID = uuid.New()
	s.products[p.ID] = p
	return p
}

type storeSnapshot struct {
	products map[uuid.UUID]*model.Product
	ledger   []model.LedgerEntry
	orders   map[uuid.UUID]*model.SalesOrder
	sessions map[uuid.UUID]*model.RegisterSession
}

func (s *memStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		products: make(map[uuid.UUID]*model.Product, len(s.products)),
		ledger:   append([]model.LedgerEntry(nil), s.ledger...),
		orders:   make(map[uuid.UUID]*model.SalesOrder, len(s.orders)),
		sessions: make(map[uuid.UUID]*model.RegisterSession, len(s.sessions)),
	}
	for id, p := range s.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, o := range s.orders {
		snap.orders[id] = copyOrder(o)
	}
	for id, sess := range s.sessions {
		cp := *sess
		snap.sessions[id] = &cp
	}
	return snap
}

func (s *memStore) restore(snap storeSnapshot) {
	s.products = snap.products
	s.ledger = snap.ledger
	s.orders = snap.orders
	s.sessions = snap.sessions
}

func copyOrder(o *model.SalesOrder) *model.SalesOrder {
	cp := *o
	cp.Lines = append([]model.SalesOrderLine(nil), o.Lines...)
	return &cp
}

// memTx runs the unit of work under the store lock and rolls the store back
// when fn fails. Fakes receive a nil *gorm.DB; they never touch it.
type memTx struct {
	s *memStore
}

func (m memTx) Do(fn func(tx *gorm.DB) error) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	snap := m.s.snapshot()
	if err := fn(nil); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

var _ repository.TxManager = memTx{}

type fakeProducts struct {
	s *memStore
}

var _ repository.ProductRepository = (*fakeProducts)(nil)

func (f *fakeProducts) Create(product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	cp := *product
	f.s.products[product.ID] = &cp
	return nil
}

func (f *fakeProducts) FindAll() ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProducts) FindByID(id uuid.UUID) (*model.Product, error) {
	p, ok := f.s.products[id]
	if !ok {
		return nil, &model.ProductNotFoundError{ProductID: id}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) FindBySKU(sku string) (*model.Product, error) {
	for _, p := range f.s.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProducts) FindLowStock(threshold int) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.s.products {
		if p.Stock < threshold && p.Status == model.ProductActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Update(product *model.Product) error {
	existing, ok := f.s.products[product.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *product
	cp.Stock = existing.Stock // stock is owned by the mutators
	f.s.products[product.ID] = &cp
	return nil
}

func (f *fakeProducts) Deactivate(id uuid.UUID, updatedBy string) error {
	p, ok := f.s.products[id]
	if !ok {
		return &model.ProductNotFoundError{ProductID: id}
	}
	p.Status = model.ProductInactive
	p.UpdatedBy = updatedBy
	return nil
}

func (f *fakeProducts) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return f.FindByID(id)
}

func (f *fakeProducts) IncrementStock(tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return &model.InvalidQuantityError{ProductID: id, Quantity: qty}
	}
	p, ok := f.s.products[id]
	if !ok {
		return &model.ProductNotFoundError{ProductID: id}
	}
	p.Stock += qty
	return nil
}

func (f *fakeProducts) DecrementStock(tx *gorm.DB, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return &model.InvalidQuantityError{ProductID: id, Quantity: qty}
	}
	p, ok := f.s.products[id]
	if !ok {
		return &model.ProductNotFoundError{ProductID: id}
	}
	if p.Stock < qty {
		return &model.InsufficientStockError{
			ProductID:   id,
			ProductName: p.Name,
			Requested:   qty,
			Available:   p.Stock,
		}
	}
	p.Stock -= qty
	return nil
}

func (f *fakeProducts) SetStock(tx *gorm.DB, id uuid.UUID, newLevel int) error {
	if newLevel < 0 {
		return &model.InvalidQuantityError{ProductID: id, Quantity: newLevel}
	}
	p, ok := f.s.products[id]
	if !ok {
		return &model.ProductNotFoundError{ProductID: id}
	}
	p.Stock = newLevel
	return nil
}

func (f *fakeProducts) CountAll() (int64, error) {
	return int64(len(f.s.products)), nil
}

func (f *fakeProducts) CountLowStock(threshold int) (int64, error) {
	var n int64
	for _, p := range f.s.products {
		if p.Stock < threshold {
			n++
		}
	}
	return n, nil
}

func (f *fakeProducts) StockValuation() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range f.s.products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return total, nil
}

func (f *fakeProducts) FindAllCategories() ([]model.Category, error) {
	return nil, nil
}

type fakeLedger struct {
	s *memStore
}

var _ repository.LedgerRepository = (*fakeLedger)(nil)

func (f *fakeLedger) Append(tx *gorm.DB, entry *model.LedgerEntry) error {
	if entry.Quantity <= 0 {
		return &model.InvalidQuantityError{ProductID: entry.ProductID, Quantity: entry.Quantity}
	}
	cp := *entry
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.s.ledger = append(f.s.ledger, cp)
	return nil
}

func (f *fakeLedger) Find(filter repository.LedgerFilter) ([]model.LedgerEntry, error) {
	bounded := filter.ProductID != nil || len(filter.Types) > 0 ||
		filter.From != nil || filter.To != nil ||
		filter.ReferenceType != nil || filter.ReferenceID != nil || filter.Limit > 0
	if !bounded {
		return nil, model.ErrLedgerQueryUnbounded
	}

	var out []model.LedgerEntry
	// Newest first.
	for i := len(f.s.ledger) - 1; i >= 0; i-- {
		e := f.s.ledger[i]
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, e.Type) {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.CreatedAt.After(*filter.To) {
			continue
		}
		if filter.ReferenceType != nil && (e.ReferenceType == nil || *e.ReferenceType != *filter.ReferenceType) {
			continue
		}
		if filter.ReferenceID != nil && (e.ReferenceID == nil || *e.ReferenceID != *filter.ReferenceID) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func containsType(types []model.LedgerType, t model.LedgerType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (f *fakeLedger) CountByReference(referenceType string, referenceID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range f.s.ledger {
		if e.ReferenceType != nil && *e.ReferenceType == referenceType &&
			e.ReferenceID != nil && *e.ReferenceID == referenceID {
			n++
		}
	}
	return n, nil
}

func (f *fakeLedger) GetDailyMovement(startDate, endDate time.Time) ([]repository.StockMovementData, error) {
	byDate := make(map[string]*repository.StockMovementData)
	var order []string
	for _, e := range f.s.ledger {
		if e.CreatedAt.Before(startDate) || e.CreatedAt.After(endDate) {
			continue
		}
		date := e.CreatedAt.Format("2006-01-02")
		data, ok := byDate[date]
		if !ok {
			data = &repository.StockMovementData{Date: date}
			byDate[date] = data
			order = append(order, date)
		}
		switch e.Type.Direction() {
		case 1:
			data.Inbound += e.Quantity
		case -1:
			data.Outbound += e.Quantity
		}
	}
	var out []repository.StockMovementData
	for _, date := range order {
		out = append(out, *byDate[date])
	}
	return out, nil
}

type fakeSales struct {
	s *memStore
	// createErrs is popped once per Create call; used to simulate unique
	// index collisions on the invoice number.
	createErrs []error
}

var _ repository.SalesRepository = (*fakeSales)(nil)

func (f *fakeSales) Create(tx *gorm.DB, order *model.SalesOrder) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range f.s.orders {
		if existing.InvoiceNumber == order.InvoiceNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].SalesOrderID = order.ID
	}
	f.s.orders[order.ID] = copyOrder(order)
	return nil
}

func (f *fakeSales) NextInvoiceSequence(tx *gorm.DB, day time.Time) (int, error) {
	prefix := model.InvoicePrefixFor(day)
	max := 0
	for _, o := range f.s.orders {
		if !strings.HasPrefix(o.InvoiceNumber, prefix) {
			continue
		}
		seq, err := model.ParseInvoiceSequence(o.InvoiceNumber)
		if err != nil {
			return 0, err
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

func (f *fakeSales) FindByID(id uuid.UUID) (*model.SalesOrder, error) {
	o, ok := f.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrder(o), nil
}

func (f *fakeSales) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.SalesOrder, error) {
	return f.FindByID(id)
}

func (f *fakeSales) List(filter repository.SalesFilter) ([]model.SalesOrder, error) {
	var out []model.SalesOrder
	for _, o := range f.s.orders {
		if filter.From != nil && o.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && o.CreatedAt.After(*filter.To) {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (f *fakeSales) UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus, updatedBy string) error {
	o, ok := f.s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	o.UpdatedBy = updatedBy
	return nil
}

func (f *fakeSales) DeletePending(id uuid.UUID, deletedBy string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if o.Status != model.OrderPending {
		return model.ErrOrderNotPending
	}
	delete(f.s.orders, id)
	return nil
}

func (f *fakeSales) CashSalesTotal(userID string, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range f.s.orders {
		if o.Status != model.OrderCompleted || o.PaymentMethod != model.PaymentCash {
			continue
		}
		if o.CreatedByUserID == nil || *o.CreatedByUserID != userID {
			continue
		}
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		total = total.Add(o.GrandTotal)
	}
	return total, nil
}

func (f *fakeSales) RevenueBetween(from, to time.Time) (decimal.Decimal, int64, error) {
	total := decimal.Zero
	var count int64
	for _, o := range f.s.orders {
		if o.Status != model.OrderCompleted {
			continue
		}
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		total = total.Add(o.GrandTotal)
		count++
	}
	return total, count, nil
}

type fakeCustomers struct {
	s *memStore
}

var _ repository.CustomerRepository = (*fakeCustomers)(nil)

func (f *fakeCustomers) Create(customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	cp := *customer
	f.s.customers[customer.ID] = &cp
	return nil
}

func (f *fakeCustomers) Update(customer *model.Customer) error {
	if _, ok := f.s.customers[customer.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *customer
	f.s.customers[customer.ID] = &cp
	return nil
}

func (f *fakeCustomers) Delete(id uuid.UUID, deletedBy string) error {
	delete(f.s.customers, id)
	return nil
}

func (f *fakeCustomers) FindByID(id uuid.UUID) (*model.Customer, error) {
	c, ok := f.s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) FindAll() ([]model.Customer, error) {
	var out []model.Customer
	for _, c := range f.s.customers {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCustomers) Search(query string) ([]model.Customer, error) {
	var out []model.Customer
	for _, c := range f.s.customers {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) ||
			strings.Contains(c.Phone, query) {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeRegisters struct {
	s *memStore
}

var _ repository.RegisterRepository = (*fakeRegisters)(nil)

func (f *fakeRegisters) Create(session *model.RegisterSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	cp := *session
	f.s.sessions[session.ID] = &cp
	return nil
}

func (f *fakeRegisters) Update(session *model.RegisterSession) error {
	if _, ok := f.s.sessions[session.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *session
	f.s.sessions[session.ID] = &cp
	return nil
}

func (f *fakeRegisters) FindByID(id uuid.UUID) (*model.RegisterSession, error) {
	sess, ok := f.s.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeRegisters) FindOpenByUser(userID uuid.UUID) (*model.RegisterSession, error) {
	for _, sess := range f.s.sessions {
		if sess.UserID == userID && sess.Status == model.SessionOpen {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRegisters) FindRecent(limit int) ([]model.RegisterSession, error) {
	var out []model.RegisterSession
	for _, sess := range f.s.sessions {
		out = append(out, *sess)
	}
	return out, nil
}

// captureEvents records published events for assertions.
type captureEvents struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *captureEvents) Notify(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureEvents) byType(t event.Type) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []event.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

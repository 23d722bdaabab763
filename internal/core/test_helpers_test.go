package core

import (
	"arquitectura/internal/infra/persistence/memory"
	"arquitectura/pkg/domain"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func sampleClient(projectIDs ...string) domain.Client {
	return domain.Client{
		Name:       "Ana",
		Surname:    "Pérez",
		Email:      "ana@example.com",
		Phone:      "555-0101",
		Address:    "Calle 1",
		ProjectIDs: projectIDs,
	}
}

func sampleProject(status string) domain.Project {
	return domain.Project{
		Name:        "Casa Lomas",
		Description: "Vivienda unifamiliar",
		StartDate:   "2024-01-10",
		EndDate:     "2024-12-20",
		Status:      status,
		Responsible: "Arq. Ruiz",
		Materials: []domain.MaterialDetail{{
			Name: "Cemento", Category: "aglomerantes", Quantity: 40, Unit: "saco", UnitPrice: 9.5,
		}},
	}
}

func sampleOrder(projectID string) domain.Order {
	return domain.Order{
		ProjectID:  projectID,
		SupplierID: domain.NewID(),
		MaterialID: domain.NewID(),
		Quantity:   12,
		OrderDate:  "2024-03-01",
		Status:     "pendiente",
	}
}

func sampleSupplier(products ...string) domain.Supplier {
	s := domain.Supplier{Name: "Materiales del Norte", Address: "Av. 5", Phone: "555-0199", Email: "ventas@norte.example"}
	for _, p := range products {
		s.Products = append(s.Products, domain.Product{Name: p, UnitPrice: 10, AvailableQuantity: 100})
	}
	return s
}

func sampleWorker(projectIDs ...string) domain.Worker {
	return domain.Worker{
		Name:       "Luis",
		Surname:    "Gómez",
		JobTitle:   "albañil",
		Salary:     1200,
		HireDate:   "2023-05-02",
		ProjectIDs: projectIDs,
	}
}

func sampleMaterial(category string) domain.Material {
	return domain.Material{
		Name:              "Arena fina",
		Description:       "Arena lavada",
		Category:          category,
		AvailableQuantity: 30,
		Unit:              "m3",
		UnitPrice:         18.25,
	}
}

func newMemoryService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	return NewService(memory.NewStore(), opts...)
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (f failingStore) Insert(context.Context, string, domain.Document) (string, error) {
	return "", f.err
}
func (f failingStore) FindOne(context.Context, string, string) (domain.Document, error) {
	return nil, f.err
}
func (f failingStore) FindMany(context.Context, string, domain.Filter, int) ([]domain.StoredDocument, error) {
	return nil, f.err
}
func (f failingStore) Replace(context.Context, string, string, domain.Document) error { return f.err }
func (f failingStore) Delete(context.Context, string, string) error                   { return f.err }
func (f failingStore) Ping(context.Context) error                                     { return f.err }
func (f failingStore) Close(context.Context) error                                    { return nil }

// vanishingStore loses every document between insert and read-back.
type vanishingStore struct {
	*memory.Store
}

func (vanishingStore) FindOne(context.Context, string, string) (domain.Document, error) {
	return nil, domain.ErrDocumentNotFound
}

var errBackend = errors.New("connection refused")

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) find(op string) (AuditEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Operation == op {
			return e, true
		}
	}
	return AuditEntry{}, false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type logCall struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) add(level, msg string, args []any) {
	l.calls = append(l.calls, logCall{level: level, msg: msg, args: args})
}

func (l *captureLogger) count(level string) int {
	n := 0
	for _, c := range l.calls {
		if c.level == level {
			n++
		}
	}
	return n
}

// stepClock advances by step on every reading.
func stepClock(start time.Time, step time.Duration) Clock {
	var mu sync.Mutex
	now := start
	return ClockFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur := now
		now = now.Add(step)
		return cur
	})
}

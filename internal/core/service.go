package core

import (
	"arquitectura/pkg/domain"
	"context"
	"fmt"
	"time"
)

// Service is the record store facade: one repository per record kind, the
// named relation lookups and blueprint attachments. Every call is traced,
// measured, audited and logged under an operation name such as
// "proyectos.update" or "pedidos.by_project".
type Service struct {
	store domain.DocumentStore

	clients   *Repository[domain.Client]
	projects  *Repository[domain.Project]
	orders    *Repository[domain.Order]
	suppliers *Repository[domain.Supplier]
	workers   *Repository[domain.Worker]
	materials *Repository[domain.Material]

	opts serviceOptions
}

// NewService constructs a service over store.
func NewService(store domain.DocumentStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Service{
		store:     store,
		clients:   NewRepository[domain.Client](store, domain.ClientKind),
		projects:  NewRepository[domain.Project](store, domain.ProjectKind),
		orders:    NewRepository[domain.Order](store, domain.OrderKind),
		suppliers: NewRepository[domain.Supplier](store, domain.SupplierKind),
		workers:   NewRepository[domain.Worker](store, domain.WorkerKind),
		materials: NewRepository[domain.Material](store, domain.MaterialKind),
		opts:      o,
	}
}

// Store returns the underlying document store.
func (s *Service) Store() domain.DocumentStore { return s.store }

// Records is the observed CRUD surface of one record kind.
type Records[T domain.Record] struct {
	svc  *Service
	repo *Repository[T]
}

// Clients returns the client records.
func (s *Service) Clients() Records[domain.Client] { return Records[domain.Client]{s, s.clients} }

// Projects returns the project records.
func (s *Service) Projects() Records[domain.Project] { return Records[domain.Project]{s, s.projects} }

// Orders returns the order records.
func (s *Service) Orders() Records[domain.Order] { return Records[domain.Order]{s, s.orders} }

// Suppliers returns the supplier records.
func (s *Service) Suppliers() Records[domain.Supplier] {
	return Records[domain.Supplier]{s, s.suppliers}
}

// Workers returns the worker records.
func (s *Service) Workers() Records[domain.Worker] { return Records[domain.Worker]{s, s.workers} }

// Materials returns the material records.
func (s *Service) Materials() Records[domain.Material] {
	return Records[domain.Material]{s, s.materials}
}

// Kind returns the record kind.
func (r Records[T]) Kind() domain.Kind { return r.repo.Kind() }

// Create inserts rec and returns it with its new identifier.
func (r Records[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	err := r.svc.observe(ctx, r.op("create"), r.repo.Kind(), "create", "", func(ctx context.Context) (string, error) {
		var err error
		out, err = r.repo.Create(ctx, rec)
		if err != nil {
			return "", err
		}
		id, _ := recordID(r.repo.Kind(), out)
		return id, nil
	})
	return out, err
}

// Update replaces the record stored under id.
func (r Records[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	var out T
	err := r.svc.observe(ctx, r.op("update"), r.repo.Kind(), "update", id, func(ctx context.Context) (string, error) {
		var err error
		out, err = r.repo.Update(ctx, id, rec)
		return id, err
	})
	return out, err
}

// Delete removes the record stored under id.
func (r Records[T]) Delete(ctx context.Context, id string) error {
	return r.svc.observe(ctx, r.op("delete"), r.repo.Kind(), "delete", id, func(ctx context.Context) (string, error) {
		return id, r.repo.Delete(ctx, id)
	})
}

// Get loads the record stored under id.
func (r Records[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.svc.observe(ctx, r.op("get"), r.repo.Kind(), "get", id, func(ctx context.Context) (string, error) {
		var err error
		out, err = r.repo.Get(ctx, id)
		return id, err
	})
	return out, err
}

// FindByField returns up to 100 records whose field equals value.
func (r Records[T]) FindByField(ctx context.Context, field string, value any) ([]T, error) {
	return r.find(ctx, "find", field, value)
}

func (r Records[T]) find(ctx context.Context, name, field string, value any) ([]T, error) {
	var out []T
	err := r.svc.observe(ctx, r.op(name), r.repo.Kind(), "find", "", func(ctx context.Context) (string, error) {
		var err error
		out, err = r.repo.FindByField(ctx, field, value)
		return "", err
	})
	return out, err
}

func (r Records[T]) op(name string) string {
	return r.repo.Kind().Collection + "." + name
}

// ClientsByProject lists clients linked to the project through proyecto_ids.
func (s *Service) ClientsByProject(ctx context.Context, projectID string) ([]domain.Client, error) {
	return s.Clients().find(ctx, "by_project", "proyecto_ids", projectID)
}

// ProjectsByStatus lists projects in the given estado.
func (s *Service) ProjectsByStatus(ctx context.Context, status string) ([]domain.Project, error) {
	return s.Projects().find(ctx, "by_status", "estado", status)
}

// ProjectsByResponsible lists projects led by responsible.
func (s *Service) ProjectsByResponsible(ctx context.Context, responsible string) ([]domain.Project, error) {
	return s.Projects().find(ctx, "by_responsible", "responsable", responsible)
}

// OrdersByProject lists orders referencing the project. The project need not exist.
func (s *Service) OrdersByProject(ctx context.Context, projectID string) ([]domain.Order, error) {
	return s.Orders().find(ctx, "by_project", "proyecto_id", projectID)
}

// OrdersBySupplier lists orders placed with the supplier.
func (s *Service) OrdersBySupplier(ctx context.Context, supplierID string) ([]domain.Order, error) {
	return s.Orders().find(ctx, "by_supplier", "proveedor_id", supplierID)
}

// OrdersByMaterial lists orders for the material.
func (s *Service) OrdersByMaterial(ctx context.Context, materialID string) ([]domain.Order, error) {
	return s.Orders().find(ctx, "by_material", "material_id", materialID)
}

// SuppliersByProduct lists suppliers offering a product with the given name.
func (s *Service) SuppliersByProduct(ctx context.Context, product string) ([]domain.Supplier, error) {
	return s.Suppliers().find(ctx, "by_product", "productos.nombre", product)
}

// WorkersByProject lists workers assigned to the project through proyecto_ids.
func (s *Service) WorkersByProject(ctx context.Context, projectID string) ([]domain.Worker, error) {
	return s.Workers().find(ctx, "by_project", "proyecto_ids", projectID)
}

// MaterialsByCategory lists materials in categoria.
func (s *Service) MaterialsByCategory(ctx context.Context, category string) ([]domain.Material, error) {
	return s.Materials().find(ctx, "by_category", "categoria", category)
}

// Ping checks the document store.
func (s *Service) Ping(ctx context.Context) error {
	return s.observe(ctx, "store.ping", domain.Kind{}, "ping", "", func(ctx context.Context) (string, error) {
		if err := s.store.Ping(ctx); err != nil {
			return "", fmt.Errorf("ping store: %w", err)
		}
		return "", nil
	})
}

// observe runs fn inside a span and reports its outcome to the metrics,
// audit and logging hooks. fn returns the identifier of the affected record.
func (s *Service) observe(ctx context.Context, op string, kind domain.Kind, action, id string, fn func(context.Context) (string, error)) error {
	start := s.opts.clock.Now()
	ctx, span := s.opts.tracer.Start(ctx, op)
	affected, err := fn(ctx)
	if affected == "" {
		affected = id
	}
	duration := s.opts.clock.Now().Sub(start)
	span.End(err)
	s.opts.metrics.Observe(ctx, op, err == nil, duration)

	entry := AuditEntry{
		Operation: op,
		Entity:    kind.Entity,
		Action:    action,
		EntityID:  affected,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: start,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.opts.audit.Record(ctx, entry)
	s.log(op, affected, duration, err)
	return err
}

func (s *Service) log(op, id string, duration time.Duration, err error) {
	args := []any{"operation", op, "duration", duration}
	if id != "" {
		args = append(args, "id", id)
	}
	switch {
	case err == nil:
		s.opts.logger.Debug("operation completed", args...)
	case domain.IsNotFound(err), domain.IsInvalidIdentifier(err), domain.IsInvalidInput(err):
		s.opts.logger.Debug("operation rejected", append(args, "error", err)...)
	default:
		s.opts.logger.Error("operation failed", append(args, "error", err)...)
	}
}

// recordID extracts the identifier annotated on rec.
func recordID(kind domain.Kind, rec any) (string, bool) {
	doc, err := domain.EncodeDocument(rec)
	if err != nil {
		return "", false
	}
	id, ok := doc[kind.IDField].(string)
	return id, ok
}

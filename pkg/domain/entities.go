// Package domain defines the persistent record kinds of the arquitectura
// backend, the document-store abstraction they are persisted through, and the
// error taxonomy shared by every layer above it.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// EntityType identifies the kind of record stored in the domain.
type EntityType string

// Supported entity type identifiers.
const (
	// EntityClient identifies a client record.
	EntityClient EntityType = "client"
	// EntityProject identifies a construction project record.
	EntityProject EntityType = "project"
	// EntityOrder identifies a material order record.
	EntityOrder EntityType = "order"
	// EntitySupplier identifies a supplier record.
	EntitySupplier EntityType = "supplier"
	// EntityWorker identifies a worker record.
	EntityWorker EntityType = "worker"
	// EntityMaterial identifies a stocked material record.
	EntityMaterial EntityType = "material"
	// EntityBlueprint identifies a blueprint file attached to a project.
	EntityBlueprint EntityType = "blueprint"
)

// Kind describes how one entity type maps onto the document store and the
// API: which collection holds it, which field annotates its identifier, and
// the display name used in client-facing messages.
type Kind struct {
	Entity     EntityType
	Collection string
	IDField    string
	Display    string
}

// Kinds of the six record types. Display names are the user-facing nouns of
// the deployed API and appear verbatim in messages.
var (
	ClientKind   = Kind{Entity: EntityClient, Collection: "clientes", IDField: "idCliente", Display: "Cliente"}
	ProjectKind  = Kind{Entity: EntityProject, Collection: "proyectos", IDField: "idProyecto", Display: "Proyecto"}
	OrderKind    = Kind{Entity: EntityOrder, Collection: "pedidos", IDField: "idPedido", Display: "Pedido"}
	SupplierKind = Kind{Entity: EntitySupplier, Collection: "proveedores", IDField: "idProveedor", Display: "Proveedor"}
	WorkerKind   = Kind{Entity: EntityWorker, Collection: "trabajadores", IDField: "idTrabajador", Display: "Trabajador"}
	MaterialKind = Kind{Entity: EntityMaterial, Collection: "materiales", IDField: "idMaterial", Display: "Material"}
)

// BlueprintKind describes blueprint attachments. Blueprints live inside
// projects and the blob store, so the kind is not part of Kinds.
var BlueprintKind = Kind{Entity: EntityBlueprint, Collection: "planos", IDField: "nombre", Display: "Plano"}

// Kinds returns every record kind in a stable order.
func Kinds() []Kind {
	return []Kind{ClientKind, ProjectKind, OrderKind, SupplierKind, WorkerKind, MaterialKind}
}

// KindByCollection resolves a kind from its collection name.
func KindByCollection(collection string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.Collection == collection {
			return k, true
		}
	}
	return Kind{}, false
}

// Record is implemented by every persisted record type.
type Record interface {
	Validate() error
}

// ClientProject is the lightweight project summary embedded in a client.
type ClientProject struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	StartDate   string `json:"fecha_inicio"`
	EndDate     string `json:"fecha_fin"`
	Status      string `json:"estado"`
	Responsible string `json:"responsable"`
}

// Client represents a customer of the firm.
type Client struct {
	ID         string          `json:"idCliente,omitempty"`
	Name       string          `json:"nombre"`
	Surname    string          `json:"apellido"`
	Email      string          `json:"email"`
	Phone      string          `json:"telefono"`
	Address    string          `json:"direccion"`
	Projects   []ClientProject `json:"proyectos"`
	ProjectIDs []string        `json:"proyecto_ids,omitempty"`
}

// MaterialDetail is a material line item owned by a project.
type MaterialDetail struct {
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion"`
	Category    string  `json:"categoria"`
	Quantity    int     `json:"cantidad"`
	Unit        string  `json:"unidad_medida"`
	UnitPrice   float64 `json:"precio_unitario"`
}

// Tool is a tool line item owned by a project.
type Tool struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Quantity    int    `json:"cantidad"`
	Condition   string `json:"estado"`
}

// Blueprint references a drawing attached to a project. Version names the
// uploaded file currently served for it; entries without one point at no
// stored upload.
type Blueprint struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	URL         string `json:"url"`
	Version     string `json:"version,omitempty"`
}

// Project represents a construction project.
type Project struct {
	ID          string           `json:"idProyecto,omitempty"`
	Name        string           `json:"nombre"`
	Description string           `json:"descripcion"`
	StartDate   string           `json:"fecha_inicio"`
	EndDate     string           `json:"fecha_fin"`
	Status      string           `json:"estado"`
	Responsible string           `json:"responsable"`
	Materials   []MaterialDetail `json:"materiales"`
	Tools       []Tool           `json:"herramientas"`
	Blueprints  []Blueprint      `json:"planos"`
}

// Order is a material purchase. Its references are informal identifiers:
// nothing checks that they resolve and nothing cascades when they stop to.
type Order struct {
	ID         string `json:"idPedido,omitempty"`
	ProjectID  string `json:"proyecto_id"`
	SupplierID string `json:"proveedor_id"`
	MaterialID string `json:"material_id"`
	Quantity   int    `json:"cantidad"`
	OrderDate  string `json:"fecha_pedido"`
	Status     string `json:"estatus"`
}

// Product is an item offered by a supplier.
type Product struct {
	Name              string  `json:"nombre"`
	Description       string  `json:"descripcion"`
	UnitPrice         float64 `json:"precio_unitario"`
	AvailableQuantity int     `json:"cantidad_disponible"`
}

// Supplier represents a vendor of materials.
type Supplier struct {
	ID       string    `json:"idProveedor,omitempty"`
	Name     string    `json:"nombre"`
	Address  string    `json:"direccion"`
	Phone    string    `json:"telefono"`
	Email    string    `json:"email"`
	Products []Product `json:"productos"`
}

// AssignedProject mirrors ClientProject with an optional end date.
type AssignedProject struct {
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion"`
	StartDate   string  `json:"fecha_inicio"`
	EndDate     *string `json:"fecha_fin"`
	Status      string  `json:"estado"`
	Responsible string  `json:"responsable"`
}

// Worker represents an employee.
type Worker struct {
	ID               string            `json:"idTrabajador,omitempty"`
	Name             string            `json:"nombre"`
	Surname          string            `json:"apellido"`
	JobTitle         string            `json:"puesto"`
	Salary           float64           `json:"salario"`
	HireDate         string            `json:"fecha_contratacion"`
	TerminationDate  *string           `json:"fecha_terminacion"`
	AssignedProjects []AssignedProject `json:"proyectos_asignados"`
	ProjectIDs       []string          `json:"proyecto_ids,omitempty"`
}

// Material represents a stocked material.
type Material struct {
	ID                string  `json:"idMaterial,omitempty"`
	Name              string  `json:"nombre"`
	Description       string  `json:"descripcion"`
	Category          string  `json:"categoria"`
	AvailableQuantity int     `json:"cantidad_disponible"`
	Unit              string  `json:"unidad_medida"`
	UnitPrice         float64 `json:"precio_unitario"`
}

// fieldCheck collects fields holding negative quantities or prices so a
// single error names all of them. Presence of required fields is checked by
// DecodeRecord; empty strings are accepted.
type fieldCheck struct {
	invalid []string
}

func (c *fieldCheck) nonNegative(name string, value float64) {
	if value < 0 {
		c.invalid = append(c.invalid, name)
	}
}

func (c *fieldCheck) err(kind Kind) error {
	if len(c.invalid) == 0 {
		return nil
	}
	return InvalidInput(kind, errors.New("valores negativos: "+strings.Join(c.invalid, ", ")))
}

// Validate accepts any client; it holds no quantities.
func (c Client) Validate() error { return nil }

// Validate rejects negative line-item quantities and prices.
func (p Project) Validate() error {
	var chk fieldCheck
	for i, m := range p.Materials {
		chk.nonNegative(fmt.Sprintf("materiales[%d].cantidad", i), float64(m.Quantity))
		chk.nonNegative(fmt.Sprintf("materiales[%d].precio_unitario", i), m.UnitPrice)
	}
	for i, t := range p.Tools {
		chk.nonNegative(fmt.Sprintf("herramientas[%d].cantidad", i), float64(t.Quantity))
	}
	return chk.err(ProjectKind)
}

// Validate rejects a negative quantity.
func (o Order) Validate() error {
	var chk fieldCheck
	chk.nonNegative("cantidad", float64(o.Quantity))
	return chk.err(OrderKind)
}

// Validate rejects negative product prices and stock.
func (s Supplier) Validate() error {
	var chk fieldCheck
	for i, p := range s.Products {
		chk.nonNegative(fmt.Sprintf("productos[%d].precio_unitario", i), p.UnitPrice)
		chk.nonNegative(fmt.Sprintf("productos[%d].cantidad_disponible", i), float64(p.AvailableQuantity))
	}
	return chk.err(SupplierKind)
}

// Validate rejects a negative salary.
func (w Worker) Validate() error {
	var chk fieldCheck
	chk.nonNegative("salario", w.Salary)
	return chk.err(WorkerKind)
}

// Validate rejects negative stock or price.
func (m Material) Validate() error {
	var chk fieldCheck
	chk.nonNegative("cantidad_disponible", float64(m.AvailableQuantity))
	chk.nonNegative("precio_unitario", m.UnitPrice)
	return chk.err(MaterialKind)
}

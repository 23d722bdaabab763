package mongo

import (
	"arquitectura/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func ns(mt *mtest.T, collection string) string {
	return mt.DB.Name() + "." + collection
}

func TestStoreAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert returns object id", func(mt *mtest.T) {
		store := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		id, err := store.Insert(ctx, "clientes", domain.Document{"nombre": "Ana", "edad": json.Number("31")})
		if err != nil {
			mt.Fatalf("insert: %v", err)
		}
		if _, ok := domain.ParseID(id); !ok {
			mt.Fatalf("expected hex object id, got %q", id)
		}
	})

	mt.Run("insert failure is reported", func(mt *mtest.T) {
		store := New(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 91, Name: "ShutdownInProgress", Message: "shutting down"}))
		if _, err := store.Insert(ctx, "clientes", domain.Document{"nombre": "Ana"}); err == nil {
			mt.Fatalf("expected insert error")
		}
	})

	mt.Run("find one normalizes document", func(mt *mtest.T) {
		store := New(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "proyectos"), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "nombre", Value: "Casa"},
			{Key: "presupuesto", Value: int64(1500)},
			{Key: "materiales", Value: bson.A{bson.D{{Key: "nombre", Value: "Cemento"}, {Key: "cantidad", Value: 2.5}}}},
		}))
		doc, err := store.FindOne(ctx, "proyectos", oid.Hex())
		if err != nil {
			mt.Fatalf("find one: %v", err)
		}
		if _, leaked := doc["_id"]; leaked {
			mt.Fatalf("_id leaked into document")
		}
		if doc["nombre"] != "Casa" || doc["presupuesto"] != json.Number("1500") {
			mt.Fatalf("unexpected document %#v", doc)
		}
		materials, ok := doc["materiales"].([]any)
		if !ok || len(materials) != 1 {
			mt.Fatalf("unexpected materials %#v", doc["materiales"])
		}
		if materials[0].(map[string]any)["cantidad"] != json.Number("2.5") {
			mt.Fatalf("unexpected nested quantity %#v", materials[0])
		}
	})

	mt.Run("find one missing", func(mt *mtest.T) {
		store := New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "proyectos"), mtest.FirstBatch))
		if _, err := store.FindOne(ctx, "proyectos", primitive.NewObjectID().Hex()); !errors.Is(err, domain.ErrDocumentNotFound) {
			mt.Fatalf("expected not found, got %v", err)
		}
		if _, err := store.FindOne(ctx, "proyectos", "not-hex"); !errors.Is(err, domain.ErrDocumentNotFound) {
			mt.Fatalf("expected not found for malformed id, got %v", err)
		}
	})

	mt.Run("find many returns ids in order", func(mt *mtest.T) {
		store := New(mt.DB)
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "pedidos"), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: first}, {Key: "proyecto_id", Value: "p1"}},
			bson.D{{Key: "_id", Value: second}, {Key: "proyecto_id", Value: "p1"}},
		))
		res, err := store.FindMany(ctx, "pedidos", domain.Filter{Field: "proyecto_id", Value: "p1"}, 0)
		if err != nil {
			mt.Fatalf("find many: %v", err)
		}
		if len(res) != 2 || res[0].ID != first.Hex() || res[1].ID != second.Hex() {
			mt.Fatalf("unexpected results %+v", res)
		}
	})

	mt.Run("find many empty is not nil", func(mt *mtest.T) {
		store := New(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, "materiales"), mtest.FirstBatch))
		res, err := store.FindMany(ctx, "materiales", domain.Filter{Field: "categoria", Value: "x"}, 10)
		if err != nil || res == nil || len(res) != 0 {
			mt.Fatalf("expected empty slice, got %v %v", res, err)
		}
	})

	mt.Run("replace matched and unmatched", func(mt *mtest.T) {
		store := New(mt.DB)
		id := primitive.NewObjectID().Hex()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		if err := store.Replace(ctx, "trabajadores", id, domain.Document{"nombre": "Luis", "_id": "ignored"}); err != nil {
			mt.Fatalf("replace: %v", err)
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		if err := store.Replace(ctx, "trabajadores", id, domain.Document{"nombre": "Luis"}); !errors.Is(err, domain.ErrDocumentNotFound) {
			mt.Fatalf("expected not found, got %v", err)
		}
	})

	mt.Run("delete matched and unmatched", func(mt *mtest.T) {
		store := New(mt.DB)
		id := primitive.NewObjectID().Hex()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		if err := store.Delete(ctx, "materiales", id); err != nil {
			mt.Fatalf("delete: %v", err)
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		if err := store.Delete(ctx, "materiales", id); !errors.Is(err, domain.ErrDocumentNotFound) {
			mt.Fatalf("expected not found, got %v", err)
		}
	})

	mt.Run("ping and close", func(mt *mtest.T) {
		store := New(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		if err := store.Ping(ctx); err != nil {
			mt.Fatalf("ping: %v", err)
		}
		if err := store.Close(ctx); err != nil {
			mt.Fatalf("close on borrowed client: %v", err)
		}
		if store.Database() != mt.DB {
			mt.Fatalf("unexpected database handle")
		}
	})
}

func TestToBSONConvertsNumbers(t *testing.T) {
	out := toBSON(domain.Document{
		"entero":  json.Number("7"),
		"decimal": json.Number("7.5"),
		"lista":   []any{json.Number("1"), map[string]any{"x": json.Number("2")}},
	})
	if out["entero"] != int64(7) || out["decimal"] != 7.5 {
		t.Fatalf("unexpected numbers %#v", out)
	}
	list := out["lista"].(bson.A)
	if list[0] != int64(1) || list[1].(bson.M)["x"] != int64(2) {
		t.Fatalf("unexpected nested conversion %#v", list)
	}
}

func TestToBSONKeepsFloatFieldsDouble(t *testing.T) {
	doc, err := domain.EncodeDocument(domain.Worker{Name: "Luis", Salary: 1500})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := toBSON(doc)
	if v, ok := out["salario"].(float64); !ok || v != 1500 {
		t.Fatalf("expected salario stored as double, got %#v", out["salario"])
	}
	if _, ok := toBSON(domain.Document{"cantidad": json.Number("3")})["cantidad"].(int64); !ok {
		t.Fatalf("integral numbers should stay int64")
	}
}

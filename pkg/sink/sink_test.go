package sink

import (
	"context"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/mltn2v/pkg/walk"
)

func TestDocuments(t *testing.T) {
	docs := documents(Batch{
		RunID: "run-1",
		W:     0.5,
		Walks: []walk.Walk{{"a", "b"}, {"c"}},
	})
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}

	d := docs[1].(bson.D).Map()
	if d["run_id"] != "run-1" || d["w"] != 0.5 || d["index"] != 1 {
		t.Errorf("document fields = %v", d)
	}
	if tokens := d["tokens"].([]string); len(tokens) != 1 || tokens[0] != "c" {
		t.Errorf("tokens = %v, want [c]", tokens)
	}
}

func TestDiscard(t *testing.T) {
	if err := Discard.Write(context.Background(), Batch{}); err != nil {
		t.Errorf("Discard.Write error: %v", err)
	}
	if err := Discard.Close(context.Background()); err != nil {
		t.Errorf("Discard.Close error: %v", err)
	}
}

func TestMongoSink(t *testing.T) {
	uri := os.Getenv("MLTN2V_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MLTN2V_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	s, err := NewMongoSink(ctx, MongoOptions{URI: uri, Database: "mltn2v_test", BatchSize: 2})
	if err != nil {
		t.Fatalf("NewMongoSink error: %v", err)
	}
	defer s.Close(ctx)
	defer s.coll.Drop(ctx)

	b := Batch{RunID: "test", W: 0.25, Walks: []walk.Walk{{"a"}, {"b"}, {"c"}}}
	if err := s.Write(ctx, b); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "run_id", Value: "test"}})
	if err != nil || n != 3 {
		t.Errorf("CountDocuments = %d, %v; want 3", n, err)
	}
}

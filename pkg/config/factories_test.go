package config

import (
	"context"
	"testing"

	"github.com/marmos91/pincache/pkg/store/badgerstore"
	"github.com/marmos91/pincache/pkg/store/memory"
)

func TestCreateStoreMemory(t *testing.T) {
	s, err := CreateStore(context.Background(), &StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("create memory store failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*memory.MemoryStore); !ok {
		t.Fatalf("expected *memory.MemoryStore, got %T", s)
	}
}

func TestCreateStoreBadgerInMemory(t *testing.T) {
	s, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": true},
	})
	if err != nil {
		t.Fatalf("create badger store failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*badgerstore.BadgerStore); !ok {
		t.Fatalf("expected *badgerstore.BadgerStore, got %T", s)
	}
}

func TestCreateStoreBadgerOnDisk(t *testing.T) {
	s, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("create badger store failed: %v", err)
	}
	defer s.Close()
}

func TestCreateStoreBadgerRequiresPath(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err == nil {
		t.Fatal("expected error for badger store without path or in_memory")
	}
}

func TestCreateStoreS3RequiresBucketAndRegion(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
	}{
		{name: "missing bucket", options: map[string]any{"region": "us-east-1"}},
		{name: "missing region", options: map[string]any{"bucket": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateStore(context.Background(), &StoreConfig{Type: "s3", S3: tt.options})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCreateStoreUnknownType(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{Type: "etcd"})
	if err == nil {
		t.Fatal("expected error for unknown store type")
	}
}

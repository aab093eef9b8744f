package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/pincache/pkg/store"
)

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "k", []byte("hello")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestGetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "absent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := NewMemoryStore()

	if err := s.Delete(context.Background(), "absent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := []byte("original")
	if err := s.Set(ctx, "k", in); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	in[0] = 'X'

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("stored value was aliased to caller's slice: %q", got)
	}

	got[0] = 'Y'
	again, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(again) != "original" {
		t.Fatalf("returned value was aliased to stored slice: %q", again)
	}
}

func TestLen(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	_ = s.Set(ctx, "a", nil)
	_ = s.Set(ctx, "b", nil)
	_ = s.Set(ctx, "a", []byte("again"))
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
}

package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/nadhifra/storefront-checkout/internal/cartstore"
	"github.com/nadhifra/storefront-checkout/internal/domain"
)

var (
	shirt = domain.Product{ID: "p-shirt", Name: "Shirt", Price: 1999}
	mug   = domain.Product{ID: "p-mug", Name: "Mug", Price: 750}
)

func newTestCart(t *testing.T) (*Cart, *cartstore.MemoryStore) {
	t.Helper()
	slot := cartstore.NewMemoryStore()
	return LoadCart(context.Background(), "sess-1", slot), slot
}

func TestCart_AddMergesMatchingVariant(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	if err := cart.Add(ctx, shirt, 2, "M", "blue"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.Add(ctx, shirt, 3, "M", "blue"); err != nil {
		t.Fatalf("add: %v", err)
	}

	items := cart.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", items[0].Quantity)
	}
}

func TestCart_AddKeepsVariantsDistinct(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	if err := cart.Add(ctx, shirt, 1, "M", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.Add(ctx, shirt, 1, "L", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	if len(cart.Items()) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(cart.Items()))
	}
	if cart.Count() != 2 {
		t.Fatalf("expected count 2, got %d", cart.Count())
	}
}

func TestCart_AddRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	if err := cart.Add(ctx, shirt, 2, "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	for _, qty := range []int{0, -1} {
		if err := cart.Add(ctx, shirt, qty, "", ""); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}

	// Prior state untouched.
	if cart.Count() != 2 {
		t.Fatalf("expected count 2 after rejected adds, got %d", cart.Count())
	}
}

func TestCart_SetQuantityZeroRemoves(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	if err := cart.Add(ctx, shirt, 2, "M", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.SetQuantity(ctx, shirt.ID, 0, "M", ""); err != nil {
		t.Fatalf("set quantity: %v", err)
	}

	if cart.Count() != 0 {
		t.Fatalf("expected empty cart, got count %d", cart.Count())
	}
}

func TestCart_SetQuantityReplaces(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	if err := cart.Add(ctx, shirt, 2, "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.SetQuantity(ctx, shirt.ID, 7, "", ""); err != nil {
		t.Fatalf("set quantity: %v", err)
	}

	if cart.Count() != 7 {
		t.Fatalf("expected count 7, got %d", cart.Count())
	}
}

func TestCart_SetQuantityAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	if err := cart.SetQuantity(ctx, "missing", 3, "", ""); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if cart.Count() != 0 {
		t.Fatalf("expected empty cart, got count %d", cart.Count())
	}
}

func TestCart_RemoveAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	if err := cart.Add(ctx, mug, 1, "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.Remove(ctx, mug.ID, "M", ""); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if cart.Count() != 1 {
		t.Fatalf("expected item to survive variant mismatch, got count %d", cart.Count())
	}
}

func TestCart_SubtotalExactIntegerSum(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	rng := rand.New(rand.NewSource(42))
	var want int64
	for i := 0; i < 1000; i++ {
		p := domain.Product{
			ID:    "p-" + strconv.Itoa(i),
			Name:  "Product",
			Price: int64(rng.Intn(100_000)),
		}
		qty := 1 + rng.Intn(9)
		if err := cart.Add(ctx, p, qty, "", ""); err != nil {
			t.Fatalf("add: %v", err)
		}
		want += p.Price * int64(qty)
	}

	if got := cart.Subtotal(); got != want {
		t.Fatalf("expected subtotal %d, got %d", want, got)
	}
}

func TestCart_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	cart, slot := newTestCart(t)

	if err := cart.Add(ctx, shirt, 2, "M", "blue"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.Add(ctx, mug, 3, "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	reloaded := LoadCart(ctx, "sess-1", slot)
	if reloaded.Count() != cart.Count() {
		t.Fatalf("expected count %d after reload, got %d", cart.Count(), reloaded.Count())
	}
	if reloaded.Subtotal() != cart.Subtotal() {
		t.Fatalf("expected subtotal %d after reload, got %d", cart.Subtotal(), reloaded.Subtotal())
	}
}

func TestCart_CorruptSnapshotDiscarded(t *testing.T) {
	ctx := context.Background()
	slot := cartstore.NewMemoryStore()
	if err := slot.Save(ctx, "sess-1", []byte("{not json")); err != nil {
		t.Fatalf("save: %v", err)
	}

	cart := LoadCart(ctx, "sess-1", slot)
	if cart.Count() != 0 {
		t.Fatalf("expected empty cart from corrupt snapshot, got count %d", cart.Count())
	}

	// The cart remains usable and overwrites the bad snapshot.
	if err := cart.Add(ctx, shirt, 1, "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if reloaded := LoadCart(ctx, "sess-1", slot); reloaded.Count() != 1 {
		t.Fatalf("expected count 1 after overwrite, got %d", reloaded.Count())
	}
}

func TestCart_ClearPersistsEmpty(t *testing.T) {
	ctx := context.Background()
	cart, slot := newTestCart(t)

	if err := cart.Add(ctx, shirt, 2, "", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if cart.Count() != 0 || cart.Subtotal() != 0 {
		t.Fatalf("expected empty cart, got count=%d subtotal=%d", cart.Count(), cart.Subtotal())
	}
	if reloaded := LoadCart(ctx, "sess-1", slot); reloaded.Count() != 0 {
		t.Fatalf("expected cleared snapshot, got count %d", reloaded.Count())
	}
}

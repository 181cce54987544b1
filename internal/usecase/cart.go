package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/nadhifra/storefront-checkout/internal/cartstore"
	"github.com/nadhifra/storefront-checkout/internal/domain"
)

// Cart holds the ordered line items for one browsing session. At most one
// line item exists per (product, size, color). Every mutation writes the
// full snapshot back to the slot store before returning.
type Cart struct {
	sessionID string
	slot      cartstore.Store
	items     []domain.LineItem
}

// LoadCart restores a session's cart from its snapshot slot. A missing
// snapshot starts an empty cart; a corrupt or unreadable one is logged and
// discarded rather than surfaced, the store stays authoritative for
// whatever is written next.
func LoadCart(ctx context.Context, sessionID string, slot cartstore.Store) *Cart {
	c := &Cart{sessionID: sessionID, slot: slot}

	snapshot, err := slot.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, cartstore.ErrNotFound) {
			log.Printf("cart %s: snapshot load failed, starting empty: %v", sessionID, err)
		}
		return c
	}

	if err := json.Unmarshal(snapshot, &c.items); err != nil {
		log.Printf("cart %s: discarding corrupt snapshot: %v", sessionID, err)
		c.items = nil
	}
	return c
}

// Add merges quantity into an existing matching line item or appends a new
// one. Quantities below one are rejected; decreases go through SetQuantity
// or Remove.
func (c *Cart) Add(ctx context.Context, product domain.Product, quantity int, size, color string) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	for i := range c.items {
		item := &c.items[i]
		if item.ProductID == product.ID && item.Size == size && item.Color == color {
			item.Quantity += quantity
			return c.persist(ctx)
		}
	}

	c.items = append(c.items, domain.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Size:      size,
		Color:     color,
	})
	return c.persist(ctx)
}

// SetQuantity replaces the quantity of the matching line item. A quantity
// of zero or less removes it. Absent items are a no-op.
func (c *Cart) SetQuantity(ctx context.Context, productID string, quantity int, size, color string) error {
	if quantity <= 0 {
		return c.Remove(ctx, productID, size, color)
	}

	for i := range c.items {
		item := &c.items[i]
		if item.ProductID == productID && item.Size == size && item.Color == color {
			item.Quantity = quantity
			return c.persist(ctx)
		}
	}
	return nil
}

// Remove deletes the matching line item; no-op if absent.
func (c *Cart) Remove(ctx context.Context, productID string, size, color string) error {
	for i := range c.items {
		item := c.items[i]
		if item.ProductID == productID && item.Size == size && item.Color == color {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.persist(ctx)
		}
	}
	return nil
}

// Clear empties the cart, invoked after successful order placement.
func (c *Cart) Clear(ctx context.Context) error {
	c.items = nil
	return c.persist(ctx)
}

// Count is the sum of all quantities.
func (c *Cart) Count() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the exact integer sum of unit price times quantity.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) persist(ctx context.Context) error {
	snapshot, err := json.Marshal(c.items)
	if err != nil {
		return err
	}
	return c.slot.Save(ctx, c.sessionID, snapshot)
}

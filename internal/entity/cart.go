package entity

// Cart is a user's staging area before checkout. Items maps a product ID to
// the held amount: grams for WEIGHT products, pieces otherwise.
type Cart struct {
	UserID string
	Items  map[string]float64
}

// NewCart creates an empty cart for userID.
func NewCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		Items:  make(map[string]float64),
	}
}

// Add accumulates amount onto the held amount of productID and returns the
// new amount. An entry that drops to zero or below is removed.
func (c *Cart) Add(productID string, amount float64) float64 {
	next := c.Items[productID] + amount
	if next <= 0 {
		delete(c.Items, productID)
		return 0
	}
	c.Items[productID] = next
	return next
}

// Remove deletes productID from the cart.
func (c *Cart) Remove(productID string) {
	delete(c.Items, productID)
}

// Empty reports whether the cart holds nothing.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// Snapshot returns a copy of the items safe to hand out.
func (c *Cart) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(c.Items))
	for id, amount := range c.Items {
		out[id] = amount
	}
	return out
}

// DefaultCartAmount applies the add-to-cart default: an absent or
// non-positive amount means one kilogram (1000 g) for WEIGHT products and
// one piece otherwise.
func DefaultCartAmount(mode UnitMode, amount float64) float64 {
	if amount > 0 {
		return amount
	}
	if mode == UnitWeight {
		return GramsPerKilogram
	}
	return 1
}

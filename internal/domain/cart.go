package domain

// CartItem references a product and embeds the product snapshot the server
// returned with it. Price is the unit price at the time of add.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Cart is the server-computed cart. Total and ItemCount are trusted verbatim.
type Cart struct {
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}

func EmptyCart() Cart {
	return Cart{Items: []CartItem{}}
}

// Clone returns a copy whose item slice does not alias c.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, Total: c.Total, ItemCount: c.ItemCount}
}

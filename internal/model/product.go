package model

// Product statuses recognised by the purchasing signal.
const (
	ProductActive       = "Active"
	ProductOutOfStock   = "Out of Stock"
	ProductDiscontinued = "Discontinued"
)

// Product is one row of the inventory table maintained by the product loader.
type Product struct {
	Name          string `json:"product_name"`
	StockQuantity int64  `json:"stock_quantity"`
	Status        string `json:"status"`
}

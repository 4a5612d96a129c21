package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCustomerFixture() *Customer {
	return &Customer{
		ID:        "cust-1",
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Addresses: []Address{{Country: "DE", State: "BE"}},
	}
}

func TestValidCustomer(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Customer)
		want   bool
	}{
		{"complete customer", func(c *Customer) {}, true},
		{"missing email", func(c *Customer) { c.Email = "" }, false},
		{"missing first name", func(c *Customer) { c.FirstName = "" }, false},
		{"missing last name", func(c *Customer) { c.LastName = "" }, false},
		{"no addresses", func(c *Customer) { c.Addresses = nil }, false},
		{"addresses without country", func(c *Customer) {
			c.Addresses = []Address{{State: "CA"}, {FirstName: "x"}}
		}, false},
		{"second address has country", func(c *Customer) {
			c.Addresses = []Address{{State: "CA"}, {Country: "US"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCustomerFixture()
			tt.mutate(c)
			assert.Equal(t, tt.want, ValidCustomer(c))
		})
	}

	assert.False(t, ValidCustomer(nil))
}

func TestValidOrder(t *testing.T) {
	assert.True(t, ValidOrder(&Order{BillingAddress: &Address{Country: "US"}}))
	assert.False(t, ValidOrder(&Order{BillingAddress: &Address{State: "CA"}}))
	assert.False(t, ValidOrder(&Order{}))
	assert.False(t, ValidOrder(nil))
}

func TestValidProduct(t *testing.T) {
	withSellable := func(value any) *ProductProjection {
		return &ProductProjection{
			ID: "prod-1",
			MasterVariant: ProductVariant{
				SKU:        "sku-1",
				Attributes: []Attribute{{Name: AttributeSellable, Value: value}},
			},
		}
	}

	assert.True(t, ValidProduct(withSellable(true)))
	assert.True(t, ValidProduct(withSellable("yes")))
	assert.False(t, ValidProduct(withSellable(false)))
	assert.False(t, ValidProduct(withSellable(nil)))
	assert.False(t, ValidProduct(&ProductProjection{ID: "prod-2"}))
	assert.False(t, ValidProduct(nil))
}

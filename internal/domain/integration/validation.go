package integration

// ValidCustomer reports whether a customer can be synchronized as a billing account:
// email, first and last name, and at least one address carrying a country.
func ValidCustomer(c *Customer) bool {
	if c == nil || c.Email == "" || c.FirstName == "" || c.LastName == "" {
		return false
	}
	for _, addr := range c.Addresses {
		if addr.Country != "" {
			return true
		}
	}
	return false
}

// ValidOrder reports whether an order has a billing address with a country.
func ValidOrder(o *Order) bool {
	return o != nil && o.BillingAddress != nil && o.BillingAddress.Country != ""
}

// ValidProduct reports whether the master variant carries a "sellable" attribute
// that is not the boolean false.
func ValidProduct(p *ProductProjection) bool {
	if p == nil {
		return false
	}
	value, ok := p.MasterVariant.Attribute(AttributeSellable)
	if !ok || value == nil {
		return false
	}
	if b, isBool := value.(bool); isBool && !b {
		return false
	}
	return true
}

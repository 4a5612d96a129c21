package integration

import (
	"context"
	"sort"
)

// Attribute names read from commerce product variants
const (
	AttributeSellable           = "sellable"
	AttributeVariantDescription = "variant-description"
	AttributeOfferingName       = "offeringName"
)

// CommercePlatform is the read/update port onto the commerce platform.
// Read operations return (nil, nil) when the entity does not exist.
type CommercePlatform interface {
	GetProductProjection(ctx context.Context, id string) (*ProductProjection, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	GetOrder(ctx context.Context, id string) (*Order, error)

	// SetOrderNumber writes an external order number onto a commerce order,
	// guarded by the order's optimistic version.
	SetOrderNumber(ctx context.Context, orderID string, version int64, orderNumber string) error
}

// Money is an amount in the currency's minor unit
type Money struct {
	CurrencyCode   string
	CentAmount     int64
	FractionDigits int
}

// Price is a single price entry of a product variant
type Price struct {
	ID    string
	Value Money
}

// Attribute is a named product variant attribute. Value holds the decoded JSON value:
// bool, float64, string or map[string]any for localized strings.
type Attribute struct {
	Name  string
	Value any
}

// ProductVariant is one SKU-carrying variant of a commerce product
type ProductVariant struct {
	ID         int
	SKU        string
	Prices     []Price
	Attributes []Attribute
}

// Attribute returns the raw value of the named attribute
func (v ProductVariant) Attribute(name string) (any, bool) {
	for _, attr := range v.Attributes {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return nil, false
}

// StringAttribute returns the named attribute as a string. Localized values
// resolve to en-US, then en, then the first locale in sort order.
func (v ProductVariant) StringAttribute(name string) (string, bool) {
	value, ok := v.Attribute(name)
	if !ok || value == nil {
		return "", false
	}
	switch val := value.(type) {
	case string:
		return val, true
	case map[string]any:
		return localizedString(val)
	case map[string]string:
		generic := make(map[string]any, len(val))
		for k, s := range val {
			generic[k] = s
		}
		return localizedString(generic)
	default:
		return "", false
	}
}

func localizedString(values map[string]any) (string, bool) {
	for _, locale := range []string{"en-US", "en"} {
		if s, ok := values[locale].(string); ok {
			return s, true
		}
	}
	locales := make([]string, 0, len(values))
	for locale := range values {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	for _, locale := range locales {
		if s, ok := values[locale].(string); ok {
			return s, true
		}
	}
	return "", false
}

// ProductProjection is the published view of a commerce product
type ProductProjection struct {
	ID            string
	Version       int64
	MasterVariant ProductVariant
	Variants      []ProductVariant
}

// AllVariants returns the non-master variants followed by the master variant.
func (p *ProductProjection) AllVariants() []ProductVariant {
	all := make([]ProductVariant, 0, len(p.Variants)+1)
	all = append(all, p.Variants...)
	return append(all, p.MasterVariant)
}

// Address is a postal address on a customer or order
type Address struct {
	FirstName string
	LastName  string
	Email     string
	Country   string
	State     string
}

// Customer is a commerce platform customer
type Customer struct {
	ID        string
	Version   int64
	Email     string
	FirstName string
	LastName  string
	Addresses []Address
}

// LineItem is a single line of a commerce order
type LineItem struct {
	ID        string
	ProductID string
	Variant   ProductVariant
	Quantity  int64
}

// Order is a commerce platform order
type Order struct {
	ID             string
	Version        int64
	OrderNumber    string
	CustomerID     string
	CustomerEmail  string
	BillingAddress *Address
	LineItems      []LineItem
}

package integration

import (
	"context"

	"github.com/shopspring/decimal"
)

// Fixed charge attributes used for every rate plan charge created by the relay
const (
	BillCycleTypeDefaultFromCustomer = "DefaultFromCustomer"
	ChargeModelFlatFee               = "Flat Fee Pricing"
	ChargeTypeRecurring              = "Recurring"
	BillingPeriodMonth               = "Month"
	TriggerEventContractEffective    = "ContractEffective"
	UnitOfMeasureEach                = "each"
	AccountingCodeDeferredRevenue    = "Deferred Revenue"
	AccountReceivable                = "Accounts Receivable"

	OrderActionCreateSubscription = "CreateSubscription"

	// Billing products created by the relay are effective over this fixed window
	ProductEffectiveStartDate = "2020-01-01"
	ProductEffectiveEndDate   = "2060-12-31"
)

// BillingPlatform is the port onto the billing platform's REST API.
//
// Lookups return found=false when the billing platform has no matching entity;
// absence is never an error at this layer.
type BillingPlatform interface {
	CreateProduct(ctx context.Context, req ProductRequest) (*CrudResult, error)
	UpdateProduct(ctx context.Context, id string, req ProductRequest) (*CrudResult, error)
	GetProductBySKU(ctx context.Context, sku string) (*BillingProduct, bool, error)

	CreateRatePlan(ctx context.Context, req RatePlanRequest) (*CrudResult, error)
	GetRatePlanByProductID(ctx context.Context, productID string) (*RatePlan, bool, error)
	// GetRatePlanBySKU chains product and rate plan lookups. A miss at either
	// step fails with ErrBillingEntityNotFound.
	GetRatePlanBySKU(ctx context.Context, sku string) (*RatePlan, error)

	CreateCharge(ctx context.Context, req ChargeRequest) (*CrudResult, error)
	UpdateCharge(ctx context.Context, id string, req ChargeRequest) (*CrudResult, error)
	DeleteCharge(ctx context.Context, id string) error
	GetChargeByRatePlanID(ctx context.Context, ratePlanID string) (*ChargeRecord, bool, error)

	CreateAccount(ctx context.Context, req AccountSignup) (*SignupResult, error)
	GetAccount(ctx context.Context, accountNumber string) (*AccountSummary, error)

	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// CrudResult is the response of the generic object endpoints
type CrudResult struct {
	ID      string `json:"Id"`
	Success bool   `json:"Success"`
}

// BillingProduct is a catalog product as returned by object queries
type BillingProduct struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	SKU                string `json:"SKU"`
	ProductNumber      string `json:"productNumber,omitempty"`
	EffectiveStartDate string `json:"effectiveStartDate,omitempty"`
	EffectiveEndDate   string `json:"effectiveEndDate,omitempty"`
}

// ProductRequest creates or updates a catalog product
type ProductRequest struct {
	ID                 string `json:"Id,omitempty"`
	Name               string `json:"Name"`
	Description        string `json:"Description"`
	SKU                string `json:"SKU"`
	EffectiveStartDate string `json:"EffectiveStartDate,omitempty"`
	EffectiveEndDate   string `json:"EffectiveEndDate,omitempty"`
}

// RatePlanRequest creates a product rate plan
type RatePlanRequest struct {
	Name      string `json:"Name"`
	ProductID string `json:"ProductId"`
}

// RatePlan is a product rate plan as returned by the catalog endpoint
type RatePlan struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  string           `json:"status"`
	Charges []RatePlanCharge `json:"productRatePlanCharges"`
}

// RatePlanCharge is a priced charge attached to a rate plan
type RatePlanCharge struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Pricing []ChargePricing `json:"pricing"`
}

// ChargePricing is the price of a charge in one currency
type ChargePricing struct {
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
}

// ChargeRecord is a rate plan charge as returned by object queries
type ChargeRecord struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ProductRatePlanID string `json:"productRatePlanId"`
	ChargeModel       string `json:"chargeModel,omitempty"`
	ChargeType        string `json:"chargeType,omitempty"`
}

// ChargeRequest creates or updates a rate plan charge
type ChargeRequest struct {
	ProductRatePlanID                 string         `json:"ProductRatePlanId"`
	Name                              string         `json:"Name"`
	BillCycleType                     string         `json:"BillCycleType"`
	ChargeModel                       string         `json:"ChargeModel"`
	ChargeType                        string         `json:"ChargeType"`
	UOM                               string         `json:"UOM"`
	UseDiscountSpecificAccountingCode bool           `json:"UseDiscountSpecificAccountingCode"`
	AccountingCode                    string         `json:"AccountingCode"`
	DeferredRevenueAccount            string         `json:"DeferredRevenueAccount"`
	RecognizedRevenueAccount          string         `json:"RecognizedRevenueAccount"`
	BillingPeriod                     string         `json:"BillingPeriod"`
	TriggerEvent                      string         `json:"TriggerEvent"`
	TierData                          ChargeTierData `json:"ProductRatePlanChargeTierData"`
}

// ChargeTierData wraps the per-currency tiers of a charge
type ChargeTierData struct {
	Tiers []ChargeTier `json:"ProductRatePlanChargeTier"`
}

// ChargeTier is the price of a charge in one currency, in major units
type ChargeTier struct {
	Currency string  `json:"Currency"`
	Price    float64 `json:"Price"`
}

// Contact is the bill-to contact of a billing account
type Contact struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	PersonalEmail string `json:"personalEmail"`
	Country       string `json:"country"`
	State         string `json:"state"`
}

// AccountData describes the billing account created on signup
type AccountData struct {
	AccountNumber string  `json:"accountNumber"`
	Name          string  `json:"name"`
	Currency      string  `json:"currency"`
	BillCycleDay  int     `json:"billCycleDay"`
	AutoPay       bool    `json:"autoPay"`
	BillToContact Contact `json:"billToContact"`
}

// SignupOptions controls billing behavior at signup time
type SignupOptions struct {
	BillingTargetDate          string `json:"billingTargetDate"`
	CollectPayment             bool   `json:"collectPayment"`
	MaxSubscriptionsPerAccount int    `json:"maxSubscriptionsPerAccount"`
	RunBilling                 bool   `json:"runBilling"`
}

// SignupSubscription is the subscription section of a signup request
type SignupSubscription struct {
	InvoiceSeparately bool              `json:"invoiceSeparately"`
	StartDate         string            `json:"startDate"`
	Terms             SubscriptionTerms `json:"terms"`
}

// AccountSignup is the request body of the sign-up endpoint
type AccountSignup struct {
	AccountData      AccountData        `json:"accountData"`
	Options          SignupOptions      `json:"options"`
	SubscriptionData SignupSubscription `json:"subscriptionData"`
}

// Reason is a failure reason reported by the higher level endpoints
type Reason struct {
	Code    any    `json:"code,omitempty"`
	Message string `json:"message"`
}

// SignupResult is the response of the sign-up endpoint
type SignupResult struct {
	Success            bool     `json:"success"`
	Reasons            []Reason `json:"reasons,omitempty"`
	OrderNumber        string   `json:"orderNumber"`
	Status             string   `json:"status"`
	AccountNumber      string   `json:"accountNumber"`
	AccountID          string   `json:"accountId"`
	SubscriptionNumber string   `json:"subscriptionNumber"`
	SubscriptionID     string   `json:"subscriptionId"`
}

// AccountSummary is the response of the account lookup endpoint
type AccountSummary struct {
	Success   bool     `json:"success"`
	Reasons   []Reason `json:"reasons,omitempty"`
	BasicInfo struct {
		ID            string `json:"id"`
		AccountNumber string `json:"accountNumber"`
		Name          string `json:"name"`
		Status        string `json:"status"`
	} `json:"basicInfo"`
}

// InitialTerm is the first term of a subscription
type InitialTerm struct {
	Period     int    `json:"period"`
	PeriodType string `json:"periodType"`
	StartDate  string `json:"startDate"`
	TermType   string `json:"termType"`
}

// RenewalTerm is a renewal period of a subscription
type RenewalTerm struct {
	Period     int    `json:"period"`
	PeriodType string `json:"periodType"`
}

// SubscriptionTerms is the term block shared by signups and order subscriptions
type SubscriptionTerms struct {
	AutoRenew      bool          `json:"autoRenew"`
	InitialTerm    InitialTerm   `json:"initialTerm"`
	RenewalSetting string        `json:"renewalSetting"`
	RenewalTerms   []RenewalTerm `json:"renewalTerms"`
}

// RatePlanRef subscribes a subscription to a product rate plan
type RatePlanRef struct {
	ProductRatePlanID string `json:"productRatePlanId"`
}

// CreateSubscription describes a subscription created by an order action
type CreateSubscription struct {
	Terms                SubscriptionTerms `json:"terms"`
	SubscribeToRatePlans []RatePlanRef     `json:"subscribeToRatePlans"`
}

// TriggerDate sets the date of a named order action trigger
type TriggerDate struct {
	Name        string `json:"name"`
	TriggerDate string `json:"triggerDate"`
}

// OrderAction is a single action within an order subscription
type OrderAction struct {
	Type               string              `json:"type"`
	CreateSubscription *CreateSubscription `json:"createSubscription,omitempty"`
	TriggerDates       []TriggerDate       `json:"triggerDates"`
}

// OrderSubscription groups the actions applied to one subscription
type OrderSubscription struct {
	OrderActions []OrderAction `json:"orderActions"`
}

// OrderRequest is the request body of the orders endpoint
type OrderRequest struct {
	OrderNumber           string              `json:"orderNumber"`
	Description           string              `json:"description"`
	ExistingAccountNumber string              `json:"existingAccountNumber"`
	OrderDate             string              `json:"orderDate"`
	Subscriptions         []OrderSubscription `json:"subscriptions"`
}

// OrderResult is the response of the orders endpoint
type OrderResult struct {
	Success        bool     `json:"success"`
	Reasons        []Reason `json:"reasons,omitempty"`
	OrderNumber    string   `json:"orderNumber"`
	AccountNumber  string   `json:"accountNumber"`
	Status         string   `json:"status"`
	InvoiceNumbers []string `json:"invoiceNumbers,omitempty"`
	Subscriptions  []struct {
		SubscriptionNumber string `json:"subscriptionNumber"`
		Status             string `json:"status"`
	} `json:"subscriptions,omitempty"`
}

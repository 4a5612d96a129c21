package billingsync

import (
	"context"
	"fmt"
	"time"

	"github.com/zuorasync/backend/internal/domain/integration"
	"github.com/zuorasync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	defaultCountry = "US"
	defaultState   = "CA"

	// missingNamePlaceholder fills contact names the billing platform requires but the order lacks
	missingNamePlaceholder = "CANNOT BE EMPTY"
)

// ServiceConfig holds settings shared by the sync services
type ServiceConfig struct {
	// Currency of every billing account created by the relay
	Currency string
	Terms    integration.TermPolicy
	// Now is the time source for order, billing and term start dates
	Now func() time.Time
}

func (c ServiceConfig) today() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// AccountSyncService creates billing accounts for commerce customers
type AccountSyncService struct {
	billing integration.BillingPlatform
	config  ServiceConfig
	logger  *zap.Logger
}

// NewAccountSyncService creates a new AccountSyncService
func NewAccountSyncService(billing integration.BillingPlatform, cfg ServiceConfig, logger *zap.Logger) *AccountSyncService {
	return &AccountSyncService{
		billing: billing,
		config:  cfg,
		logger:  logger,
	}
}

// CustomerCreated signs up a billing account whose account number is the customer id.
func (s *AccountSyncService) CustomerCreated(ctx context.Context, customer *integration.Customer) (*integration.SignupResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "billingsync.customer_created")
	defer span.End()

	if !integration.ValidCustomer(customer) {
		err := fmt.Errorf("%w: invalid customer", integration.ErrEntityInvalid)
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrResourceID, customer.ID)

	contact := integration.Contact{
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		PersonalEmail: customer.Email,
		Country:       defaultCountry,
		State:         defaultState,
	}
	if len(customer.Addresses) > 0 {
		contact.Country = orDefault(customer.Addresses[0].Country, defaultCountry)
		contact.State = orDefault(customer.Addresses[0].State, defaultState)
	}

	result, err := s.billing.CreateAccount(ctx, s.signup(customer.ID, customer.Email, contact))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Created account", zap.String("account_id", result.AccountID), zap.String("customer_id", customer.ID))
	return result, nil
}

// EnsureAccount makes sure the order's customer has a billing account. Any
// lookup failure is treated as a missing account.
func (s *AccountSyncService) EnsureAccount(ctx context.Context, order *integration.Order) error {
	_, err := s.billing.GetAccount(ctx, order.CustomerID)
	if err == nil {
		return nil
	}
	s.logger.Info("Customer account not found, creating it",
		zap.String("customer_id", order.CustomerID),
		zap.Error(err),
	)

	contact := integration.Contact{
		FirstName:     missingNamePlaceholder,
		LastName:      missingNamePlaceholder,
		PersonalEmail: order.CustomerEmail,
		Country:       defaultCountry,
		State:         defaultState,
	}
	if addr := order.BillingAddress; addr != nil {
		contact.FirstName = orDefault(addr.FirstName, missingNamePlaceholder)
		contact.LastName = orDefault(addr.LastName, missingNamePlaceholder)
		contact.Country = orDefault(addr.Country, defaultCountry)
		contact.State = orDefault(addr.State, defaultState)
	}

	if _, err := s.billing.CreateAccount(ctx, s.signup(order.CustomerID, order.CustomerEmail, contact)); err != nil {
		return fmt.Errorf("create account for customer %s: %w", order.CustomerID, err)
	}
	return nil
}

func (s *AccountSyncService) signup(accountNumber, name string, contact integration.Contact) integration.AccountSignup {
	today := s.config.today()
	return integration.AccountSignup{
		AccountData: integration.AccountData{
			AccountNumber: accountNumber,
			Name:          name,
			Currency:      s.config.Currency,
			BillCycleDay:  1,
			AutoPay:       false,
			BillToContact: contact,
		},
		Options: integration.SignupOptions{
			BillingTargetDate:          today.Format(integration.DateLayout),
			CollectPayment:             true,
			MaxSubscriptionsPerAccount: 0,
			RunBilling:                 true,
		},
		SubscriptionData: integration.SignupSubscription{
			InvoiceSeparately: false,
			StartDate:         today.Format(integration.DateLayout),
			Terms:             s.config.Terms.Terms(today),
		},
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

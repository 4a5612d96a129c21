package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrZuoraConfigInvalid is returned when a ZuoraConfig fails validation
var ErrZuoraConfigInvalid = errors.New("zuora: invalid configuration")

// ZuoraConfig holds the billing platform REST API configuration
type ZuoraConfig struct {
	// BaseURL is the REST endpoint, e.g. https://rest.apisandbox.zuora.com
	BaseURL string `validate:"required,url"`
	// ClientID and ClientSecret are the OAuth client credentials
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	// TimeoutSeconds bounds each HTTP call; 0 keeps the transport default (no timeout)
	TimeoutSeconds int `validate:"gte=0"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration
func (c *ZuoraConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrZuoraConfigInvalid, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrZuoraConfigInvalid, err)
	}
	return nil
}

func (c *ZuoraConfig) baseURL() string {
	return strings.TrimRight(c.BaseURL, "/")
}

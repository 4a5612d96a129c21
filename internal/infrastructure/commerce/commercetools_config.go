package commerce

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrCommercetoolsConfigInvalid is returned when a CommercetoolsConfig fails validation
var ErrCommercetoolsConfigInvalid = errors.New("commercetools: invalid configuration")

// CommercetoolsConfig holds commercetools HTTP API configuration
type CommercetoolsConfig struct {
	ProjectKey   string `validate:"required"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	// Scopes are the OAuth scopes requested, e.g. "manage_project:my-project"
	Scopes []string
	// APIURL is the region API host, e.g. https://api.europe-west1.gcp.commercetools.com
	APIURL string `validate:"required,url"`
	// AuthURL is the region auth host, e.g. https://auth.europe-west1.gcp.commercetools.com
	AuthURL        string `validate:"required,url"`
	TimeoutSeconds int    `validate:"gte=0"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration
func (c *CommercetoolsConfig) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrCommercetoolsConfigInvalid, err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: %s", ErrCommercetoolsConfigInvalid, strings.Join(fields, ", "))
}

func (c *CommercetoolsConfig) projectURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/" + c.ProjectKey
}

func (c *CommercetoolsConfig) tokenURL() string {
	return strings.TrimRight(c.AuthURL, "/") + "/oauth/token"
}

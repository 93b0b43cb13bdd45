// Package validation checks recoverykit configuration and operator input.
//
// Struct tag validation (go-playground/validator) is used for config structs;
// field names in messages follow the mapstructure/json tag, so errors point at
// the key the operator actually wrote.
//
//	type Config struct {
//	    BaseURL string        `mapstructure:"base_url" validate:"required,url"`
//	    Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
//
// The programmatic Validator collects errors for request parameters:
//
//	v := validation.New()
//	v.Required("name", name).Pattern("name", name, `^[a-z]+$`)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation

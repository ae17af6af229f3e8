package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Resource type validation
	validate.RegisterValidation("resource_type", oneOfValidator(
		"USERS", "VENDORS", "PRODUCTS", "ORDERS", "COMMISSIONS",
		"TRANSACTIONS", "INVENTORY", "STOREFRONT", "AUDIT_LOGS", "SYSTEM_SETTINGS",
	))

	// Action validation
	validate.RegisterValidation("action", oneOfValidator(
		"CREATE", "READ", "UPDATE", "DELETE", "MANAGE",
	))

	// Scope validation
	validate.RegisterValidation("scope", oneOfValidator(
		"SYSTEM", "GLOBAL", "DEPARTMENT", "TEAM", "USER",
	))

	// User type validation
	validate.RegisterValidation("user_type", oneOfValidator(
		"BUYER", "VENDOR", "ADMIN", "SUPERUSER", "SYSTEM",
	))
}

func oneOfValidator(valid ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, v := range valid {
			if value == v {
				return true
			}
		}
		return false
	}
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "uuid":
			errors[field] = "Invalid UUID format"
		case "resource_type":
			errors[field] = "Invalid resource type"
		case "action":
			errors[field] = "Invalid action. Must be: CREATE, READ, UPDATE, DELETE, or MANAGE"
		case "scope":
			errors[field] = "Invalid scope. Must be: SYSTEM, GLOBAL, DEPARTMENT, TEAM, or USER"
		case "user_type":
			errors[field] = "Invalid user type"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

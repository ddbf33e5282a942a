package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/formflux/formflux/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

// actionConfigSchemas validates action configuration before dispatch. A
// config rejected here is a ValidationError: surfaced immediately, never
// retried. Schemas are compiled once at package init.
var actionConfigSchemas = map[models.ActionType]*gojsonschema.Schema{}

var rawActionSchemas = map[models.ActionType]string{
	models.ActionSendWebhook: `{
		"type": "object",
		"required": ["connector_id", "url"],
		"properties": {
			"connector_id": {"type": "string", "minLength": 1},
			"url": {"type": "string", "minLength": 1},
			"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
			"headers": {"type": "object"},
			"max_retries": {"type": "integer", "minimum": 1, "maximum": 10},
			"auth": {"type": "object"},
			"transforms": {"type": "object"}
		}
	}`,
	models.ActionHTTPRequest: `{
		"type": "object",
		"required": ["connector_id", "url"],
		"properties": {
			"connector_id": {"type": "string", "minLength": 1},
			"url": {"type": "string", "minLength": 1},
			"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
			"headers": {"type": "object"},
			"body": {},
			"max_retries": {"type": "integer", "minimum": 1, "maximum": 10},
			"auth": {"type": "object"},
			"transforms": {"type": "object"}
		}
	}`,
	models.ActionSendEmail: `{
		"type": "object",
		"required": ["to"],
		"properties": {
			"to": {"type": "string", "minLength": 1},
			"subject": {"type": "string"},
			"template": {"type": "string"}
		}
	}`,
	models.ActionSendSMS: `{
		"type": "object",
		"required": ["to"],
		"properties": {
			"to": {"type": "string", "minLength": 1},
			"message": {"type": "string"}
		}
	}`,
	models.ActionUpdateCRM: `{
		"type": "object",
		"required": ["object_type"],
		"properties": {
			"object_type": {"type": "string", "minLength": 1},
			"field_mapping": {"type": "object"}
		}
	}`,
	models.ActionCreateTask: `{
		"type": "object",
		"required": ["title"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"assignee": {"type": "string"},
			"due_in_days": {"type": "integer", "minimum": 0}
		}
	}`,
}

func init() {
	for actionType, raw := range rawActionSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic("invalid builtin action schema for " + string(actionType) + ": " + err.Error())
		}
		actionConfigSchemas[actionType] = schema
	}
}

// ValidateActionConfig checks an action type's config against its schema.
// The configuration API uses this to reject bad configs at write time, with
// the same rules the pipeline re-applies before dispatch.
func ValidateActionConfig(actionType models.ActionType, config json.RawMessage) error {
	return validateActionConfig(&models.Action{ActionType: actionType, Config: config})
}

// validateActionConfig checks an action's config against the schema for its
// type. Types without a registered schema are accepted as-is; their executor
// owns validation.
func validateActionConfig(action *models.Action) error {
	schema, ok := actionConfigSchemas[action.ActionType]
	if !ok {
		return nil
	}

	label := action.ID
	if label == "" {
		label = string(action.ActionType)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(action.Config))
	if err != nil {
		return NewValidationError("action %s config is not valid JSON: %v", label, err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		details = append(details, resultErr.String())
	}
	return NewValidationError("action %s config invalid: %s", label, strings.Join(details, "; "))
}

package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"shopdesk/models"
	"shopdesk/utils"
)

// Payload is an order webhook body decoded into its platform's schema.
// The set of implementations is closed: ShopifyOrder and WooCommerceOrder.
type Payload interface {
	Platform() models.Platform
	toCanonical() (*CanonicalOrder, error)
}

// DecodePayload decodes and validates raw against the schema of platform.
func DecodePayload(platform models.Platform, raw []byte) (Payload, error) {
	var payload Payload
	switch platform {
	case models.PlatformShopify:
		payload = &ShopifyOrder{}
	case models.PlatformWooCommerce:
		payload = &WooCommerceOrder{}
	default:
		return nil, &utils.UnsupportedPlatformError{Platform: string(platform)}
	}

	if err := decodeJSON(raw, payload); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(payload, "Invalid "+string(platform)+" order payload"); err != nil {
		return nil, err
	}
	return payload, nil
}

// Normalize decodes raw for platform and maps it into a CanonicalOrder.
func Normalize(platform models.Platform, raw []byte) (*CanonicalOrder, error) {
	payload, err := DecodePayload(platform, raw)
	if err != nil {
		return nil, err
	}
	order, err := payload.toCanonical()
	if err != nil {
		return nil, err
	}
	order.Platform = payload.Platform()
	return order, nil
}

func decodeJSON(raw []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return utils.NewValidationError("Invalid order payload", utils.FieldError{
				Field:   field,
				Message: "must be of type " + jsonKind(typeErr.Type.Kind().String()),
			})
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return utils.NewValidationError("Invalid order payload", utils.FieldError{
				Field:   "body",
				Message: "must be a JSON object",
			})
		}
		return utils.NewValidationError("Invalid order payload", utils.FieldError{
			Field:   "body",
			Message: strings.TrimPrefix(err.Error(), "json: "),
		})
	}
	return nil
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "float32", "float64", "int", "int32", "int64", "uint", "uint64":
		return "number"
	case "struct", "map", "ptr":
		return "object"
	case "slice", "array":
		return "array"
	case "bool":
		return "boolean"
	default:
		return goKind
	}
}

// parseTimestamp accepts RFC3339 and the zone-less form WooCommerce sends,
// which is read as UTC. Blank input yields nil.
func parseTimestamp(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, utils.NewValidationError("Invalid order payload", utils.FieldError{
		Field:   field,
		Message: "must be an RFC3339 timestamp",
	})
}

// idString renders a platform id that may arrive as a number or a string.
func idString(n json.Number) string {
	return strings.TrimSpace(n.String())
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

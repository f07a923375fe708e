package catalog

import (
	"github.com/go-faster/errors"
	"github.com/spf13/cast"
)

// The realtime store delivers records as untyped documents. All coercion from
// those duck-typed shapes happens here, at the ingestion boundary; core logic
// only ever sees the validated types.

// ParseModifier validates a raw modifier record. A modifier must carry a
// string id, a string name, and a numeric price; anything else is reported
// as invalid so the caller can drop it.
func ParseModifier(raw map[string]any) (Modifier, bool) {
	id, ok := raw["id"].(string)
	if !ok || id == "" {
		return Modifier{}, false
	}
	name, ok := raw["name"].(string)
	if !ok {
		return Modifier{}, false
	}
	price, err := cast.ToFloat64E(raw["price"])
	if err != nil {
		return Modifier{}, false
	}
	return Modifier{ID: id, Name: name, Price: price}, true
}

// ParseProduct converts a raw product document. Prices arrive as either
// strings or numbers; unparsable values coerce to 0. Status arrives as a bool
// or a string and is treated as a truthiness flag. Malformed modifier entries
// are dropped silently. Only a missing id is an error.
func ParseProduct(id string, raw map[string]any) (Product, error) {
	if id == "" {
		return Product{}, errors.New("product id is required")
	}

	p := Product{
		ID:          id,
		DisplayName: cast.ToString(raw["name"]),
		Price:       cast.ToFloat64(raw["price"]),
		CategoryID:  cast.ToString(raw["category"]),
		Active:      cast.ToBool(raw["status"]),
	}

	if opts, ok := raw["options"].([]any); ok {
		for _, o := range opts {
			rawMod, ok := o.(map[string]any)
			if !ok {
				continue
			}
			if m, ok := ParseModifier(rawMod); ok {
				p.Modifiers = append(p.Modifiers, m)
			}
		}
	}

	return p, nil
}

// ParseCategory converts a raw category document.
func ParseCategory(id string, raw map[string]any) (Category, error) {
	if id == "" {
		return Category{}, errors.New("category id is required")
	}
	return Category{
		ID:   id,
		Name: cast.ToString(raw["name"]),
	}, nil
}

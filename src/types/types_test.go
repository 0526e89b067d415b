package types

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

// cafeFields lists the column names in their expected JSON order.
var cafeFields = []string{
	"id",
	"name",
	"map_url",
	"img_url",
	"location",
	"seats",
	"has_toilet",
	"has_wifi",
	"has_sockets",
	"can_take_calls",
	"coffee_price",
}

func TestCafeJSONFieldOrder(t *testing.T) {
	cafe := Cafe{
		ID:         7,
		Name:       "Blue Bottle",
		Location:   String("Downtown"),
		HasSockets: Bool(true),
	}

	data, err := json.Marshal(cafe)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	last := -1
	for _, field := range cafeFields {
		idx := strings.Index(body, `"`+field+`":`)
		if idx < 0 {
			t.Fatalf("field %q missing from %s", field, body)
		}
		if idx < last {
			t.Errorf("field %q out of order in %s", field, body)
		}
		last = idx
	}
}

func TestCafeJSONNullableFields(t *testing.T) {
	data, err := json.Marshal(Cafe{ID: 1, Name: "Solo"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded) != len(cafeFields) {
		t.Errorf("expected %d keys, got %d", len(cafeFields), len(decoded))
	}
	for _, field := range []string{"map_url", "location", "has_wifi", "coffee_price"} {
		if v, ok := decoded[field]; !ok || v != nil {
			t.Errorf("expected %s to be null, got %v", field, v)
		}
	}
}

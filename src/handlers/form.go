package handlers

import (
	"CafeAPI/src/types"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxFormMemory = 1 << 20

// truthy is the accepted set of true values when strict booleans are on.
var truthy = map[string]bool{"on": true, "true": true, "1": true, "yes": true}

// cafeForm mirrors the POST /add fields. Limits match the column sizes.
type cafeForm struct {
	Name        string  `validate:"max=250"`
	MapURL      *string `validate:"omitempty,max=500"`
	ImgURL      *string `validate:"omitempty,max=500"`
	Location    *string `validate:"omitempty,max=250"`
	Seats       *string `validate:"omitempty,max=250"`
	CoffeePrice *string `validate:"omitempty,max=250"`
}

func (h *Handler) parseCafeForm(r *http.Request) (types.Cafe, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return types.Cafe{}, fmt.Errorf("invalid form body: %w", err)
	}

	optional := func(key string) *string {
		if _, ok := r.PostForm[key]; !ok {
			return nil
		}
		v := r.PostForm.Get(key)
		return &v
	}

	// name is NOT NULL: an absent field is rejected, an empty one is stored.
	if _, ok := r.PostForm["name"]; !ok {
		return types.Cafe{}, errors.New("name is required")
	}

	form := cafeForm{
		Name:        r.PostForm.Get("name"),
		MapURL:      optional("map_url"),
		ImgURL:      optional("img_url"),
		Location:    optional("loc"),
		Seats:       optional("seats"),
		CoffeePrice: optional("coffee_price"),
	}
	if err := h.validate.Struct(form); err != nil {
		return types.Cafe{}, formError(err)
	}

	return types.Cafe{
		Name:         form.Name,
		MapURL:       form.MapURL,
		ImgURL:       form.ImgURL,
		Location:     form.Location,
		Seats:        form.Seats,
		HasSockets:   types.Bool(h.formBool(r, "sockets")),
		HasToilet:    types.Bool(h.formBool(r, "toilet")),
		HasWifi:      types.Bool(h.formBool(r, "wifi")),
		CanTakeCalls: types.Bool(h.formBool(r, "calls")),
		CoffeePrice:  form.CoffeePrice,
	}, nil
}

// formBool reports whether a checkbox-style field is set. By default any
// non-empty value counts, so "false" is true; strict mode only accepts the
// truthy tokens.
func (h *Handler) formBool(r *http.Request, key string) bool {
	v := r.PostForm.Get(key)
	if h.strictBooleans {
		return truthy[strings.ToLower(strings.TrimSpace(v))]
	}
	return v != ""
}

var formFieldNames = map[string]string{
	"Name":        "name",
	"MapURL":      "map_url",
	"ImgURL":      "img_url",
	"Location":    "loc",
	"Seats":       "seats",
	"CoffeePrice": "coffee_price",
}

func formError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := formFieldNames[fe.Field()]
	switch fe.Tag() {
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

package postgres

import (
	"errors"
	"fmt"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type storeRecord struct {
	Name        string    `validate:"required"`
	Coordinates []float64 `validate:"len=2"`
	Address     string    `validate:"required"`
	AuthorID    string    `validate:"required,uuid"`
}

var storeMessages = map[string]string{
	"Name":        "Please enter a store name!",
	"Coordinates": "You must supply coordinates!",
	"Address":     "You must supply an address!",
	"AuthorID":    "You must supply an author!",
}

type reviewRecord struct {
	AuthorID string `validate:"required,uuid"`
	StoreID  string `validate:"required,uuid"`
	Text     string `validate:"required"`
	Rating   int    `validate:"min=1,max=5"`
}

var reviewMessages = map[string]string{
	"AuthorID": "You must supply an author!",
	"StoreID":  "You must supply a store!",
	"Text":     "Your review must have text!",
	"Rating":   "Rating must be between 1 and 5!",
}

func validateStore(s *domain.Store) error {
	return check(storeRecord{
		Name:        s.Name,
		Coordinates: s.Location.Coordinates,
		Address:     s.Location.Address,
		AuthorID:    s.AuthorID,
	}, storeMessages)
}

func validateReview(r *domain.Review) error {
	return check(reviewRecord{
		AuthorID: r.AuthorID,
		StoreID:  r.StoreID,
		Text:     r.Text,
		Rating:   r.Rating,
	}, reviewMessages)
}

// check runs struct validation and converts failures into a domain.ValidationError
// carrying the user-facing message for each field.
func check(record any, messages map[string]string) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("validate: %w", err)
	}

	out := &domain.ValidationError{}
	for _, fe := range ves {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
		out.Fields = append(out.Fields, domain.FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

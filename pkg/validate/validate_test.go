package validate

import (
	"testing"

	pkgerrors "github.com/lucasortega/cartwheel-backend/pkg/errors"
)

type sampleInput struct {
	Name   string `json:"name" validate:"required,min=3"`
	Email  string `json:"email" validate:"required,email"`
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
}

func TestStructReportsFieldDetails(t *testing.T) {
	err := Struct(sampleInput{Name: "ab", Email: "nope", Rating: 9})
	if err == nil {
		t.Fatal("expected validation error")
	}

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}

	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details map, got %T", typed.Details())
	}
	for _, field := range []string{"name", "email", "rating"} {
		if _, present := details[field]; !present {
			t.Fatalf("expected detail for field %q, got %v", field, details)
		}
	}
}

func TestStructPassesValidInput(t *testing.T) {
	if err := Struct(sampleInput{Name: "abc", Email: "a@b.co", Rating: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

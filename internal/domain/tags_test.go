package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNewTagSet(t *testing.T) {
	set, err := NewTagSet(" Vegan", "gluten-free", "vegan", "", "  ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"gluten-free", "vegan"}
	if !reflect.DeepEqual(set.Values(), want) {
		t.Errorf("Expected %v, got %v", want, set.Values())
	}
	if set.Len() != 2 {
		t.Errorf("Expected 2 tags, got %d", set.Len())
	}
	if !set.Contains("VEGAN") {
		t.Error("Expected Contains to normalize its argument")
	}
	if set.Contains("keto") {
		t.Error("Expected keto to be absent")
	}
}

func TestNewTagSet_Rejects(t *testing.T) {
	tests := map[string]string{
		"too long":        strings.Repeat("a", MaxTagLength+1),
		"control char":    "nut\x00s",
		"newline in text": "dairy\nfree",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewTagSet(value); !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestTagSet_ZeroValueIsEmpty(t *testing.T) {
	var set TagSet
	if set.Len() != 0 {
		t.Errorf("Expected empty set, got %d tags", set.Len())
	}

	empty, err := NewTagSet()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(set, empty) {
		t.Error("Expected NewTagSet() to equal the zero value")
	}
}

func TestTagSet_With(t *testing.T) {
	base := MustTagSet("peanuts")
	grown, err := base.With("Shellfish", "peanuts")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(grown.Values(), []string{"peanuts", "shellfish"}) {
		t.Errorf("Unexpected tags %v", grown.Values())
	}
	if base.Len() != 1 {
		t.Error("Expected With to leave the receiver unchanged")
	}
}

func TestTagSet_JSON(t *testing.T) {
	data, err := json.Marshal(TagSet{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Expected [] for empty set, got %s", data)
	}

	data, err = json.Marshal(MustTagSet("thai", "italian"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `["italian","thai"]` {
		t.Errorf("Unexpected encoding %s", data)
	}

	var decoded TagSet
	if err := json.Unmarshal([]byte(`["Thai"," italian ","thai"]`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(decoded.Values(), []string{"italian", "thai"}) {
		t.Errorf("Unexpected decoded tags %v", decoded.Values())
	}

	if err := json.Unmarshal([]byte(`{"vegan":true}`), &decoded); err == nil {
		t.Error("Expected an object to be rejected")
	}
}

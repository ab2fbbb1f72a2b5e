package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/clearance-networks/cnd-service/internal/entity"
)

func testCondominium() *entity.Condominium {
	return &entity.Condominium{
		Name:    "Edifício Aurora",
		Street:  "Rua das Flores",
		Number:  "120",
		City:    "São Paulo",
		State:   "SP",
		ZipCode: "01310-100",
		Active:  true,
	}
}

func testUnit() *entity.Unit {
	return &entity.Unit{Code: "101", Block: "A", Active: true}
}

func TestBuildDocument(t *testing.T) {
	generatedAt := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	expiresAt := generatedAt.Add(720 * time.Hour)

	t.Run("without period", func(t *testing.T) {
		doc := BuildDocument("CND260831001", testCondominium(), testUnit(), false, generatedAt, expiresAt)

		if doc.ValidationCode != "CND260831001" {
			t.Errorf("validation code = %s, want CND260831001", doc.ValidationCode)
		}
		if doc.CondominiumName != "Edifício Aurora" {
			t.Errorf("condominium name = %s", doc.CondominiumName)
		}
		if doc.Address != "Rua das Flores, 120 - São Paulo, SP 01310-100" {
			t.Errorf("address = %s", doc.Address)
		}
		if doc.Statement == "" {
			t.Error("document has no clearance statement")
		}
		if doc.Period != nil {
			t.Error("period set without withPeriod")
		}
	})

	t.Run("with period", func(t *testing.T) {
		doc := BuildDocument("CND260831001", testCondominium(), testUnit(), true, generatedAt, expiresAt)

		if doc.Period == nil {
			t.Fatal("period not set with withPeriod")
		}
		if !doc.Period.To.Equal(generatedAt) {
			t.Errorf("period end = %s, want %s", doc.Period.To, generatedAt)
		}
		if !doc.Period.From.Equal(generatedAt.AddDate(-1, 0, 0)) {
			t.Errorf("period start = %s, want 12 months before generation", doc.Period.From)
		}
	})
}

func TestCanonicalJSONRenderer(t *testing.T) {
	renderer := NewCanonicalJSONRenderer()
	generatedAt := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	doc := BuildDocument("CND260831001", testCondominium(), testUnit(), true, generatedAt, generatedAt.Add(720*time.Hour))

	raw, err := renderer.Render(doc)
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	// output is valid JSON carrying the document fields
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("rendered document is not valid JSON: %v", err)
	}
	if decoded["validationCode"] != "CND260831001" {
		t.Errorf("validationCode = %v", decoded["validationCode"])
	}
	if _, ok := decoded["period"]; !ok {
		t.Error("rendered document is missing the period")
	}

	// rendering the same document twice yields identical bytes
	again, err := renderer.Render(doc)
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !bytes.Equal(raw, again) {
		t.Error("two renders of the same document differ")
	}
}

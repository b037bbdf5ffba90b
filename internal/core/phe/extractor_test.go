package phe

import (
	"errors"
	"testing"

	"pku-kitchen/internal/pkg/common"
)

func TestEstimatePheFromProtein(t *testing.T) {
	for _, p := range []float64{0, 0.5, 2, 13.4} {
		if got := EstimatePheFromProtein(p); got != p*50 {
			t.Errorf("EstimatePheFromProtein(%v) = %v, want %v", p, got, p*50)
		}
	}
}

func TestExtract(t *testing.T) {
	t.Run("Given a direct PHE entry When extracted Then grams are converted to milligrams", func(t *testing.T) {
		rec := record("1",
			nutrient("Protein", "g", 2.86),
			nutrient("Phenylalanine", "g", 0.129),
			nutrient("Energy", "kcal", 23),
			nutrient("Carbohydrate, by difference", "g", 3.63),
		)

		got, err := Extract(rec)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		optionalEquals(t, "phe", got.PheMg, 129)
		optionalEquals(t, "protein", got.ProteinG, 2.86)
		optionalEquals(t, "energy", got.EnergyKcal, 23)
		optionalEquals(t, "carbs", got.CarbsG, 3.63)
		if got.PheEstimated {
			t.Error("expected direct PHE not to be flagged as estimated")
		}
	})

	t.Run("Given no PHE but protein 2.0g When extracted Then PHE is estimated as 100mg and Caution", func(t *testing.T) {
		got, err := Extract(record("2", nutrient("Protein", "g", 2.0)))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		optionalEquals(t, "phe", got.PheMg, 100)
		if !got.PheEstimated {
			t.Error("expected estimated flag")
		}
		if tier := TierFor(got.PheMg); tier != TierCaution {
			t.Errorf("expected Caution, got %s", tier)
		}
	})

	t.Run("Given multiple protein entries When extracted Then the first one wins", func(t *testing.T) {
		got, _ := Extract(record("3",
			nutrient("Protein", "g", 1.5),
			nutrient("Adjusted Protein", "g", 9.0),
		))
		optionalEquals(t, "protein", got.ProteinG, 1.5)
	})

	t.Run("Given energy in kJ and kcal When extracted Then only kcal is used", func(t *testing.T) {
		got, _ := Extract(record("4",
			nutrient("Energy", "kJ", 418),
			nutrient("Energy", "KCAL", 100),
		))
		optionalEquals(t, "energy", got.EnergyKcal, 100)
	})

	t.Run("Given neither PHE nor protein When extracted Then PHE stays absent", func(t *testing.T) {
		got, err := Extract(record("5", nutrient("Sugars, total", "g", 12), nutrient("Carbohydrate", "g", 14)))
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if got.PheMg.Present() {
			t.Error("expected PHE absent")
		}
		if TierFor(got.PheMg) != TierUnknown {
			t.Error("expected Unknown tier")
		}
	})

	t.Run("Given entries without amount When extracted Then they are skipped", func(t *testing.T) {
		got, _ := Extract(RawFoodRecord{HasNutrients: true, Nutrients: []RawNutrient{
			{Name: "Phenylalanine", UnitName: "g"},
			{Name: "Protein", UnitName: "g", Amount: Some(1.0)},
		}})
		optionalEquals(t, "phe", got.PheMg, 50)
		if !got.PheEstimated {
			t.Error("expected estimated PHE when direct value has no amount")
		}
	})

	t.Run("Given no nutrient list When extracted Then NoNutrientData is returned", func(t *testing.T) {
		_, err := Extract(RawFoodRecord{FdcID: "6"})
		if !errors.Is(err, common.ErrNoNutrientData) {
			t.Errorf("expected ErrNoNutrientData, got %v", err)
		}
	})
}

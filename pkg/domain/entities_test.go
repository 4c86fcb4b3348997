package domain

import "testing"

func TestMeasuresFor(t *testing.T) {
	cases := []struct {
		dataType DataType
		want     []EffectMeasure
	}{
		{Binary, []EffectMeasure{OddsRatio, RiskRatio, RiskDifference}},
		{Continuous, []EffectMeasure{MeanDifference, StdMeanDifference}},
		{Diagnostic, nil},
		{Other, nil},
	}
	for _, tc := range cases {
		got := MeasuresFor(tc.dataType)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v want %v", tc.dataType, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v want %v", tc.dataType, got, tc.want)
			}
		}
	}
}

func TestCovariateValueCompare(t *testing.T) {
	if NumericValue(1).Compare(NumericValue(2)) >= 0 {
		t.Fatalf("numeric pairs compare numerically")
	}
	if NumericValue(10).Compare(NumericValue(9)) <= 0 {
		t.Fatalf("numeric pairs compare numerically")
	}
	// A numeric against a factor falls back to text comparison, so 10 sorts
	// before 9 lexicographically.
	if NumericValue(10).Compare(FactorValue("9")) >= 0 {
		t.Fatalf("mixed pairs compare as text")
	}
	if FactorValue("a").Compare(FactorValue("b")) >= 0 {
		t.Fatalf("factor pairs compare as text")
	}
	if FactorValue("a").Compare(FactorValue("a")) != 0 {
		t.Fatalf("equal factors compare equal")
	}
	if !(CovariateValue{}).IsEmpty() {
		t.Fatalf("zero value is empty")
	}
	if NumericValue(0).IsEmpty() {
		t.Fatalf("numeric zero is not empty")
	}
}

func TestRawDataLength(t *testing.T) {
	if Binary.RawDataLength() != 2 {
		t.Fatalf("binary rows hold 2 cells")
	}
	for _, dt := range []DataType{Continuous, Diagnostic, Other} {
		if dt.RawDataLength() != 3 {
			t.Fatalf("%s rows hold 3 cells", dt)
		}
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsNotFound(ErrNotFound{Kind: KindStudy, Name: "x"}) {
		t.Fatalf("IsNotFound")
	}
	if !IsDuplicate(ErrDuplicate{Kind: KindOutcome, Name: "x"}) {
		t.Fatalf("IsDuplicate")
	}
	if !IsInvalidArgument(ErrInvalidArgument{Reason: "x"}) {
		t.Fatalf("IsInvalidArgument")
	}
	if IsNotFound(ErrDuplicate{}) || IsDuplicate(ErrNotFound{}) {
		t.Fatalf("predicates must not cross-match")
	}
}

package contract

import "testing"

func TestAboveThreshold(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		scores    []CategoryScore
		threshold float64
		want      []Category
	}{
		{
			name: "single winner",
			scores: []CategoryScore{
				{Category: CategoryLead, Confidence: 0.8},
				{Category: CategoryVendor, Confidence: 0.4},
			},
			threshold: 0.7,
			want:      []Category{CategoryLead},
		},
		{
			name: "two winners stay ambiguous",
			scores: []CategoryScore{
				{Category: CategoryLead, Confidence: 0.8},
				{Category: CategoryCarrier, Confidence: 0.75},
			},
			threshold: 0.7,
			want:      []Category{CategoryLead, CategoryCarrier},
		},
		{
			name: "exact threshold does not qualify",
			scores: []CategoryScore{
				{Category: CategoryLead, Confidence: 0.7},
			},
			threshold: 0.7,
			want:      nil,
		},
		{
			name: "reserved bucket never qualifies",
			scores: []CategoryScore{
				{Category: CategoryOther, Confidence: 0.99},
			},
			threshold: 0.7,
			want:      nil,
		},
		{
			name: "duplicates collapse",
			scores: []CategoryScore{
				{Category: CategoryStaff, Confidence: 0.9},
				{Category: CategoryStaff, Confidence: 0.8},
			},
			threshold: 0.7,
			want:      []Category{CategoryStaff},
		},
		{
			name: "unknown category ignored",
			scores: []CategoryScore{
				{Category: Category("INVENTADA"), Confidence: 0.95},
			},
			threshold: 0.7,
			want:      nil,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Classification{Scores: tc.scores}.AboveThreshold(tc.threshold)
			if len(got) != len(tc.want) {
				t.Fatalf("AboveThreshold() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("AboveThreshold()[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestCategoryValid(t *testing.T) {
	t.Parallel()

	for _, cat := range AllCategories() {
		if !cat.Valid() {
			t.Fatalf("category %s should be valid", cat)
		}
	}
	if !CategoryOther.Valid() {
		t.Fatal("reserved bucket should be valid")
	}
	if Category("WHATEVER").Valid() {
		t.Fatal("unknown category should be invalid")
	}
}

package models

import "testing"

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points    int
		wantLevel int
		wantTitle string
	}{
		{points: 0, wantLevel: 1, wantTitle: "Green Cadet"},
		{points: 99, wantLevel: 1, wantTitle: "Green Cadet"},
		{points: 100, wantLevel: 2, wantTitle: "Eco Learner"},
		{points: 299, wantLevel: 2, wantTitle: "Eco Learner"},
		{points: 300, wantLevel: 3, wantTitle: "Eco Practitioner"},
		{points: 699, wantLevel: 3, wantTitle: "Eco Practitioner"},
		{points: 700, wantLevel: 4, wantTitle: "Climate Ambassador"},
		{points: 1499, wantLevel: 4, wantTitle: "Climate Ambassador"},
		{points: 1500, wantLevel: 5, wantTitle: "Eco Leader"},
		{points: 99999, wantLevel: 5, wantTitle: "Eco Leader"},
	}
	for _, tt := range tests {
		lt := LevelFor(tt.points)
		if lt.Level != tt.wantLevel || lt.Title != tt.wantTitle {
			t.Errorf("LevelFor(%d) = level %d %q, want level %d %q",
				tt.points, lt.Level, lt.Title, tt.wantLevel, tt.wantTitle)
		}
	}
}

func TestChallengeForGrade(t *testing.T) {
	all := Challenge{GradeLevels: []string{"all"}}
	if !all.ForGrade("primary") || !all.ForGrade("college") {
		t.Error(`grade "all" should admit every grade`)
	}

	secondary := Challenge{GradeLevels: []string{"secondary", "senior"}}
	if !secondary.ForGrade("secondary") {
		t.Error("listed grade should be admitted")
	}
	if secondary.ForGrade("primary") {
		t.Error("unlisted grade should be refused")
	}
}

package models

import "time"

// Challenge types and validation modes. Reference data owned by the
// content catalog; the engine never creates or edits challenges.
const (
	TypeMission = "mission"
	TypeProject = "project"
	TypeQuiz    = "quiz"
	TypeHabit   = "habit"

	ValidationAutoCheck       = "auto_check"
	ValidationSelfReport      = "self_report"
	ValidationTeacherApproval = "teacher_approval"
	ValidationNGOApproval     = "ngo_approval"
)

type Challenge struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"not null" json:"title"`
	Description     string    `json:"description"`
	Type            string    `gorm:"type:varchar(16)" json:"type"` // mission, project, quiz, habit
	Points          int       `gorm:"not null" json:"points"`
	Difficulty      string    `gorm:"type:varchar(16)" json:"difficulty"` // easy, medium, hard
	GradeLevels     []string  `gorm:"serializer:json;type:jsonb" json:"grade_levels"`
	Validation      string    `gorm:"type:varchar(32);not null" json:"validation"`
	Category        string    `json:"category"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	PersonalizedFor []string  `gorm:"serializer:json;type:jsonb" json:"personalized_for"`
	NGOID           string    `json:"ngo_id,omitempty"`

	// Maintained by the window scheduler for cheap catalog listings.
	// IsOpenAt is authoritative for admission checks.
	Open bool `gorm:"default:true" json:"open"`

	Timestamps
}

// IsOpenAt reports whether the challenge accepts new submissions at t.
func (ch *Challenge) IsOpenAt(t time.Time) bool {
	return !t.Before(ch.StartDate) && !t.After(ch.EndDate)
}

// ForGrade reports grade eligibility ("all" admits every grade).
func (ch *Challenge) ForGrade(grade string) bool {
	for _, g := range ch.GradeLevels {
		if g == grade || g == "all" {
			return true
		}
	}
	return false
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CatalogChallenges is the bundled challenge catalog, seeded into an
// empty store at boot so local development works without the catalog
// service.
var CatalogChallenges = []Challenge{
	{
		ID: "1", Title: "Plant a Tree Challenge",
		Description: "Plant a sapling and upload a photo with GPS location. Take care of it for the next 30 days!",
		Type:        TypeMission, Points: 50, Difficulty: "easy",
		GradeLevels: []string{"primary", "secondary", "senior"},
		Validation:  ValidationTeacherApproval, Category: "Trees & Plantation",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Tree planting", "Biodiversity"}, Open: true,
	},
	{
		ID: "2", Title: "Waste Segregation Drive",
		Description: "Organize a 7-day waste segregation activity in your area. Document the process with photos.",
		Type:        TypeProject, Points: 100, Difficulty: "medium",
		GradeLevels: []string{"secondary", "senior"},
		Validation:  ValidationTeacherApproval, Category: "Waste Management",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Reducing waste", "Recycling"}, Open: true,
	},
	{
		ID: "3", Title: "Water Conservation Quiz",
		Description: "Test your knowledge about water conservation methods and sustainable practices.",
		Type:        TypeQuiz, Points: 25, Difficulty: "easy",
		GradeLevels: []string{"primary", "secondary", "senior"},
		Validation:  ValidationAutoCheck, Category: "Water Conservation",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Clean water", "Water"}, Open: true,
	},
	{
		ID: "4", Title: "Daily Energy Saving Habits",
		Description: "Track your daily energy-saving actions like turning off lights, using stairs instead of elevators.",
		Type:        TypeHabit, Points: 10, Difficulty: "easy",
		GradeLevels: []string{"primary", "secondary", "senior"},
		Validation:  ValidationSelfReport, Category: "Energy Conservation",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Saving electricity", "Energy"}, Open: true,
	},
	{
		ID: "5", Title: "Plastic-Free Campus Initiative",
		Description: "Lead a campaign to make your school plastic-free. Create awareness and implement alternatives.",
		Type:        TypeProject, Points: 200, Difficulty: "hard",
		GradeLevels: []string{"senior", "college"},
		Validation:  ValidationNGOApproval, Category: "Plastic Reduction",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Reducing waste", "Awareness campaigns"}, NGOID: "ngo1", Open: true,
	},
	{
		ID: "6", Title: "Campus Energy Audit",
		Description: "Conduct a comprehensive energy audit of your campus and propose efficiency improvements.",
		Type:        TypeProject, Points: 150, Difficulty: "hard",
		GradeLevels: []string{"college"},
		Validation:  ValidationTeacherApproval, Category: "Energy Conservation",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Energy", "Climate activism"}, Open: true,
	},
	{
		ID: "7", Title: "Zero Plastic Week Challenge",
		Description: "Go completely plastic-free for one week and document your journey.",
		Type:        TypeHabit, Points: 75, Difficulty: "medium",
		GradeLevels: []string{"secondary", "senior", "college"},
		Validation:  ValidationSelfReport, Category: "Plastic Reduction",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Reducing waste", "Recycling"}, Open: true,
	},
	{
		ID: "8", Title: "Rural Water Conservation Mission",
		Description: "Implement rainwater harvesting or water conservation techniques in rural areas.",
		Type:        TypeMission, Points: 120, Difficulty: "medium",
		GradeLevels: []string{"senior", "college"},
		Validation:  ValidationNGOApproval, Category: "Water Conservation",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		PersonalizedFor: []string{"Clean water", "Water"}, NGOID: "ngo1", Open: true,
	},
}

// CatalogSchools mirrors the institutions known to the catalog service.
var CatalogSchools = []School{
	{ID: "school1", Name: "Green Valley International School", Region: "North Delhi"},
	{ID: "inst1", Name: "Green Valley High School", Region: "Delhi"},
	{ID: "inst2", Name: "ABC Engineering College", Region: "Jaipur"},
}

package models

// LevelThreshold is a point cutoff in the progression ladder.
// Thresholds are strictly increasing; a user's level is the highest
// threshold whose MinPoints does not exceed their point total
// (boundary inclusive on the low end).
type LevelThreshold struct {
	Level     int    `json:"level"`
	MinPoints int    `json:"min_points"`
	Title     string `json:"title"`
	Color     string `json:"color"`
}

var LevelThresholds = []LevelThreshold{
	{Level: 1, MinPoints: 0, Title: "Green Cadet", Color: "#10B981"},
	{Level: 2, MinPoints: 100, Title: "Eco Learner", Color: "#3B82F6"},
	{Level: 3, MinPoints: 300, Title: "Eco Practitioner", Color: "#8B5CF6"},
	{Level: 4, MinPoints: 700, Title: "Climate Ambassador", Color: "#F59E0B"},
	{Level: 5, MinPoints: 1500, Title: "Eco Leader", Color: "#EF4444"},
}

// LevelFor returns the threshold a point total sits in.
func LevelFor(points int) LevelThreshold {
	current := LevelThresholds[0]
	for _, lt := range LevelThresholds {
		if points >= lt.MinPoints {
			current = lt
		}
	}
	return current
}

package main

// testFixtures are loaded by POST /tests/seed-database.
var testFixtures = []Recommendation{
	{Name: "It's a long way", YoutubeLink: "https://www.youtube.com/watch?v=FGrkfY5voxg", Score: 2},
	{Name: "Terra", YoutubeLink: "https://www.youtube.com/watch?v=WyxL_lbo4kM", Score: 5},
	{Name: "Extra", YoutubeLink: "https://www.youtube.com/watch?v=klUpvVO_LYg", Score: 0},
}

// initialRecommendations are loaded at start-up when DB_SEED is set.
var initialRecommendations = []Recommendation{
	{Name: "Drao", YoutubeLink: "https://www.youtube.com/watch?v=LAsAYoZ0aKs", Score: 7},
	{Name: "You know I'm no good - Arctic Monkeys", YoutubeLink: "https://www.youtube.com/watch?v=NEboIt0qA30", Score: 5},
	{Name: "Sonhos - Caetano Veloso", YoutubeLink: "https://www.youtube.com/watch?v=1H7LI5Sv7M4", Score: 2},
}

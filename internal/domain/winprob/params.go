package winprob

// Injury shifts a team's strength by Delta wins for weeks FromWeek..ToWeek.
type Injury struct {
	FromWeek int     `json:"from_week" koanf:"from_week"`
	ToWeek   int     `json:"to_week" koanf:"to_week"`
	Delta    float64 `json:"delta" koanf:"delta"`
}

// Params tunes the model. Every adjustment is expressed in wins.
type Params struct {
	// Scale divides the strength gap before the logistic.
	Scale float64 `json:"scale" koanf:"scale"`
	// HomeField is added to every home team.
	HomeField float64 `json:"home_field" koanf:"home_field"`
	// PriorGames is how many played games weigh as much as the projection.
	PriorGames float64 `json:"prior_games" koanf:"prior_games"`
	// SeasonGames scales the current win pace to a full season.
	SeasonGames int `json:"season_games" koanf:"season_games"`
	// ByeRest is added to a team coming off a bye.
	ByeRest float64 `json:"bye_rest" koanf:"bye_rest"`
	// DivisionalUnderdog is added to the weaker side of a divisional game.
	DivisionalUnderdog float64 `json:"divisional_underdog" koanf:"divisional_underdog"`

	Home      map[string]float64  `json:"home" koanf:"home"`
	Momentum  map[string]float64  `json:"momentum" koanf:"momentum"`
	UpsetRisk map[string]float64  `json:"upset_risk" koanf:"upset_risk"`
	Injuries  map[string][]Injury `json:"injuries" koanf:"injuries"`
}

// DefaultParams returns the tuned baseline.
func DefaultParams() Params {
	return Params{
		Scale:              3.5,
		HomeField:          0.5,
		PriorGames:         7,
		SeasonGames:        17,
		ByeRest:            0.75,
		DivisionalUnderdog: 0.5,
		Home: map[string]float64{
			"KC": 1, "SEA": 1,
			"PHI": 0.5, "GB": 0.5, "BUF": 0.5,
			"JAX": -0.5, "LV": -0.5, "LAR": -0.5, "CAR": -0.5,
		},
	}
}

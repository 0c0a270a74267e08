package domain

// Direction is one of the eight compass labels a building can face.
type Direction string

const (
	North     Direction = "North"
	Northeast Direction = "Northeast"
	East      Direction = "East"
	Southeast Direction = "Southeast"
	South     Direction = "South"
	Southwest Direction = "Southwest"
	West      Direction = "West"
	Northwest Direction = "Northwest"
)

// Directions lists the compass labels clockwise from North.
var Directions = []Direction{North, Northeast, East, Southeast, South, Southwest, West, Northwest}

// DirectionResult is the terminal answer of an inference: a compass label and
// an integer bearing in [0,360).
type DirectionResult struct {
	Direction Direction `json:"direction"`
	Bearing   int       `json:"bearing"`
}

// StrategyName records which heuristic produced a result.
type StrategyName string

const (
	StrategyBuilding StrategyName = "building"
	StrategyStreet   StrategyName = "street"
)

// CachedResult is the value stored in a result cache under a normalized address.
type CachedResult struct {
	Label    string          `json:"label"`
	Result   DirectionResult `json:"result"`
	Strategy StrategyName    `json:"strategy"`
	Point    GeoPoint        `json:"point"`
}

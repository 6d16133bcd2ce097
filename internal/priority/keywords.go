package priority

// severityWeights maps incident keywords to their severity weight. Keys are lower case and use
// underscores between words.
var severityWeights = map[string]float64{
	// Violent crime.
	"homicide":           40,
	"murder":             40,
	"manslaughter":       38,
	"kidnapping":         38,
	"abduction":          38,
	"sexual_assault":     36,
	"rape":               36,
	"shooting":           36,
	"stabbing":           35,
	"armed_robbery":      35,
	"aggravated_assault": 34,
	"robbery":            32,
	"carjacking":         32,
	"assault":            30,
	"arson":              30,
	"domestic_violence":  30,
	"battery":            28,
	"threat":             20,
	"harassment":         16,

	// Property crime.
	"burglary":              22,
	"breaking_and_entering": 22,
	"auto_theft":            20,
	"vehicle_theft":         20,
	"theft":                 18,
	"fraud":                 16,
	"larceny":               16,
	"shoplifting":           12,
	"vandalism":             12,
	"graffiti":              10,
	"trespassing":           10,

	// Traffic.
	"hit_and_run":      28,
	"dui":              24,
	"reckless_driving": 18,
	"traffic_accident": 15,
	"collision":        15,
	"accident":         14,
	"speeding":         10,

	// Generic severity levels.
	"critical": 40,
	"severe":   35,
	"high":     30,
	"medium":   20,
	"moderate": 20,
	"low":      10,
	"minor":    10,
}

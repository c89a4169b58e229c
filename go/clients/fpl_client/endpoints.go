package fpl_client

const (
	// Base URL
	BaseURL = "https://fantasy.premierleague.com/api"

	// API Endpoints
	BootstrapStaticEndpoint = "/bootstrap-static/"

	// Headers
	UserAgentHeader = "User-Agent"
	UserAgent       = "fpldraft/1.0"
)

// Element types as numbered by the FPL API
const (
	ElementTypeGoalkeeper = 1
	ElementTypeDefender   = 2
	ElementTypeMidfielder = 3
	ElementTypeForward    = 4
)

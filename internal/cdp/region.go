package cdp

// Region holds the fixed API endpoints for one CDP deployment region.
type Region struct {
	Name         string // "US", "EMEA", "Japan", "Korea"
	CDPBase      string // audience/entity API base URL
	APIHost      string // core REST API host (connections, v4 endpoints)
	WorkflowHost string // workflow service host
}

var regions = map[string]Region{
	"US": {
		Name:         "US",
		CDPBase:      "https://api-cdp.treasuredata.com",
		APIHost:      "api.treasuredata.com",
		WorkflowHost: "api-workflow.treasuredata.com",
	},
	"EMEA": {
		Name:         "EMEA",
		CDPBase:      "https://api-cdp.eu01.treasuredata.com",
		APIHost:      "api.eu01.treasuredata.com",
		WorkflowHost: "api-workflow.eu01.treasuredata.com",
	},
	"Japan": {
		Name:         "Japan",
		CDPBase:      "https://api-cdp.treasuredata.co.jp",
		APIHost:      "api.treasuredata.co.jp",
		WorkflowHost: "api-workflow.treasuredata.co.jp",
	},
	"Korea": {
		Name:         "Korea",
		CDPBase:      "https://api-cdp.ap02.treasuredata.com",
		APIHost:      "api.ap02.treasuredata.com",
		WorkflowHost: "api-workflow.ap02.treasuredata.com",
	},
}

// ResolveRegion maps an instance selector to its region endpoints.
// Unknown selectors fall back to US.
func ResolveRegion(instance string) Region {
	if r, ok := regions[instance]; ok {
		return r
	}
	return regions["US"]
}

// RegionNames returns the known instance selectors.
func RegionNames() []string {
	return []string{"US", "EMEA", "Japan", "Korea"}
}

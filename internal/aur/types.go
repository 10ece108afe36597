package aur

// Package is the registry metadata for one AUR package.
type Package struct {
	ID           int      `json:"ID"`
	Name         string   `json:"Name"`
	PackageBase  string   `json:"PackageBase"`
	Version      string   `json:"Version"`
	Description  string   `json:"Description"`
	URL          string   `json:"URL"`
	URLPath      string   `json:"URLPath"`
	NumVotes     int      `json:"NumVotes"`
	Popularity   float64  `json:"Popularity"`
	OutOfDate    *int64   `json:"OutOfDate"`
	Maintainer   string   `json:"Maintainer"`
	Depends      []string `json:"Depends"`
	MakeDepends  []string `json:"MakeDepends"`
	CheckDepends []string `json:"CheckDepends"`
	OptDepends   []string `json:"OptDepends"`
	Provides     []string `json:"Provides"`
	Conflicts    []string `json:"Conflicts"`
	Replaces     []string `json:"Replaces"`
}

// Base returns the name of the recipe repository this package is built from.
func (p Package) Base() string {
	if p.PackageBase != "" {
		return p.PackageBase
	}
	return p.Name
}

// SearchBy selects the field a search query is matched against.
type SearchBy string

const (
	ByName        SearchBy = "name"
	ByNameDesc    SearchBy = "name-desc"
	ByProvides    SearchBy = "provides"
	ByDepends     SearchBy = "depends"
	ByMakeDepends SearchBy = "makedepends"
)

type response struct {
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	ResultCount int       `json:"resultcount"`
	Results     []Package `json:"results"`
	Error       string    `json:"error"`
}

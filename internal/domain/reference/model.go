package reference

// Team is an upstream team record, reduced to the fields the merge
// pipeline consumes.
type Team struct {
	ID   string
	Name string
	Logo string
}

// Competition is an upstream competition record.
type Competition struct {
	ID        string
	Name      string
	CountryID string
	Logo      string
}

// Country is an upstream country record.
type Country struct {
	ID   string
	Name string
}

const (
	UnknownTeamName        = "Unknown Team"
	UnknownCompetitionName = "Unknown Competition"
	UnknownCountryName     = "Unknown Country"
)

// PermanentCountries returns the built-in country table. These values
// never change, so they are seeded once and served without network
// calls or expiry.
func PermanentCountries() map[string]string {
	return map[string]string{
		"ENG": "England",
		"ESP": "Spain",
		"ITA": "Italy",
		"GER": "Germany",
		"FRA": "France",
		"NED": "Netherlands",
		"POR": "Portugal",
		"BRA": "Brazil",
		"ARG": "Argentina",
		"USA": "United States",
		"MEX": "Mexico",
		"JPN": "Japan",
		"KOR": "South Korea",
		"AUS": "Australia",
		"CHN": "China",
		"RUS": "Russia",
		"TUR": "Turkey",
		"BEL": "Belgium",
		"SUI": "Switzerland",
		"AUT": "Austria",
		"SCO": "Scotland",
		"WAL": "Wales",
		"IRE": "Ireland",
		"DEN": "Denmark",
		"SWE": "Sweden",
		"NOR": "Norway",
		"FIN": "Finland",
		"GRE": "Greece",
		"CRO": "Croatia",
		"SRB": "Serbia",
		"UKR": "Ukraine",
		"POL": "Poland",
		"CZE": "Czech Republic",
		"HUN": "Hungary",
		"ROM": "Romania",
		"BUL": "Bulgaria",
		"ISR": "Israel",
		"EGY": "Egypt",
		"SAU": "Saudi Arabia",
		"QAT": "Qatar",
		"UAE": "United Arab Emirates",
		"CAN": "Canada",
		"COL": "Colombia",
		"PER": "Peru",
		"CHI": "Chile",
		"ECU": "Ecuador",
		"URU": "Uruguay",
		"PAR": "Paraguay",
		"BOL": "Bolivia",
		"VEN": "Venezuela",
		"INT": "International",
		"WOR": "World",
		"EUR": "Europe",
		"AFC": "Asia",
		"CAF": "Africa",
		"SAM": "South America",
		"CCA": "North/Central America",
		"OCE": "Oceania",
	}
}

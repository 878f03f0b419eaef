package masking

// Category vocabularies and patterns. Each category carries one or more
// expressions applied in sequence within its pass; a category's counter keeps
// incrementing across its expressions.

const mentalHealthPattern = `(?i)\b(depression|depressed|anxiety|anxious|panic attack|ptsd|bipolar|schizophrenia|` +
	`ocd|adhd|eating disorder|anorexia|bulimia|addiction|suicidal|self-harm|` +
	`mental health|mental illness|psychiatric|psychological condition)\b`

// Disease names are matched as stems, so possessive forms such as
// "Alzheimer's" still hit on the word boundary before the apostrophe.
const diseasePattern = `(?i)\b(diabetes|cancer|hiv|aids|covid|coronavirus|tuberculosis|hepatitis|` +
	`heart disease|hypertension|asthma|copd|alzheimer|parkinson|epilepsy|` +
	`arthritis|multiple sclerosis|lupus|crohn|celiac)\b`

const emailPattern = `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`

// Phone shapes, tried in sequence: plain 3-3-4 grouping, parenthesized area
// code, and international +CC with up to three more groups.
var phonePatterns = []string{
	`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`,
	`\(\d{3}\)\s*\d{3}[-.]?\d{4}\b`,
	`\+\d{1,3}[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}\b`,
}

const agePattern = `(?i)\b(?:age|aged|year old|years old|yr old|yrs old)[\s:]+\d{1,3}\b|\b\d{1,3}[\s-]?(?:year|yr)[\s-]?old\b`

const genderPattern = `(?i)\b(male|female|man|woman|boy|girl|transgender|non-binary|gender)\b`

// Location gazetteer: major US cities, the 50 state names, and a short list of
// countries, merged into one pass under the single LOCATION category.
const locationPattern = `(?i)\b(New York|Los Angeles|Chicago|Houston|Phoenix|Philadelphia|San Antonio|San Diego|` +
	`Dallas|San Jose|Austin|Jacksonville|Fort Worth|Columbus|Indianapolis|Charlotte|San Francisco|Seattle|` +
	`Denver|Washington|Boston|Nashville|Baltimore|Oklahoma City|Louisville|Portland|Las Vegas|Milwaukee|` +
	`Albuquerque|Tucson|Fresno|Sacramento|Kansas City|Mesa|Atlanta|Omaha|Colorado Springs|Raleigh|Miami|` +
	`Long Beach|Virginia Beach|Oakland|Minneapolis|Tulsa|Tampa|Arlington|New Orleans|Wichita|Cleveland|` +
	`Bakersfield|Aurora|Anaheim|Honolulu|Santa Ana|Riverside|Corpus Christi|Lexington|Stockton|Henderson|` +
	`Saint Paul|St\. Paul|Cincinnati|St\. Louis|Pittsburgh|Greensboro|Lincoln|Anchorage|Plano|Orlando|Irvine|` +
	`Newark|Durham|Chula Vista|Toledo|Fort Wayne|St\. Petersburg|Laredo|Jersey City|Chandler|Madison|Lubbock|` +
	`Scottsdale|Reno|Buffalo|Gilbert|Glendale|North Las Vegas|Winston-Salem|Chesapeake|Norfolk|Fremont|` +
	`Garland|Irving|Hialeah|Richmond|Boise|Spokane|Baton Rouge)\b` +
	`|(?i)\b(California|Texas|Florida|New York|Pennsylvania|Illinois|Ohio|Georgia|North Carolina|Michigan|` +
	`Alabama|Alaska|Arizona|Arkansas|Colorado|Connecticut|Delaware|Hawaii|Idaho|Indiana|Iowa|Kansas|Kentucky|` +
	`Louisiana|Maine|Maryland|Massachusetts|Minnesota|Mississippi|Missouri|Montana|Nebraska|Nevada|` +
	`New Hampshire|New Jersey|New Mexico|North Dakota|Oklahoma|Oregon|Rhode Island|South Carolina|` +
	`South Dakota|Tennessee|Utah|Vermont|Virginia|Washington|West Virginia|Wisconsin|Wyoming)\b` +
	`|(?i)\b(USA|United States|America|UK|United Kingdom|England|Canada|Australia|Germany|France|Italy|Spain|` +
	`India|China|Japan|Mexico|Brazil)\b`

// categoryPatterns returns the raw expressions for each pattern-based
// category, keyed in detection order. NAME has no patterns; its spans come
// from the optional recognizer.
func categoryPatterns() map[Category][]string {
	return map[Category][]string{
		CategoryMentalHealth: {mentalHealthPattern},
		CategoryDisease:      {diseasePattern},
		CategoryEmail:        {emailPattern},
		CategoryPhone:        phonePatterns,
		CategoryAge:          {agePattern},
		CategoryLocation:     {locationPattern},
		CategoryGender:       {genderPattern},
	}
}

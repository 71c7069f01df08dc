package model

// Drug is one registry entry keyed by its SUKL code.
// This is a pure domain model with no database-specific dependencies or tags;
// JSON tags mirror the upstream SUKL detail payload field names. The code is
// always quoted upstream (it carries leading zeros); every other attribute
// decodes through FlexString because the registry mixes quoted and unquoted
// scalars.
type Drug struct {
	SUKLCode           string     `json:"kodSUKL"`
	Name               FlexString `json:"nazev"`
	Strength           FlexString `json:"sila"`
	DosageForm         FlexString `json:"lekovaFormaKod"`
	Package            FlexString `json:"baleni"`
	Route              FlexString `json:"cestaKod"`
	Supplement         FlexString `json:"doplnek"`
	Container          FlexString `json:"obalKod"`
	Holder             FlexString `json:"drzitelKod"`
	HolderCountry      FlexString `json:"zemeDrziteleKod"`
	RegistrationStatus FlexString `json:"stavRegistraceKod"`
	ATCCode            FlexString `json:"ATCkod"`
	RegistrationNumber FlexString `json:"registracniCislo"`
	DDDAmount          FlexString `json:"dddMnozstvi"`
	DDDUnit            FlexString `json:"dddMnozstviJednotka"`
	DDDPerPackage      FlexString `json:"dddBaleni"`
	DispensingMode     FlexString `json:"zpusobVydejeKod"`
	Expiration         FlexString `json:"expirace"`
	ExpirationUnit     FlexString `json:"expiraceJednotka"`
	RegisteredName     FlexString `json:"registrovanyNazevLP"`
	SafetyFeatures     FlexString `json:"ochrannePrvky"`
	PackageLanguage    FlexString `json:"jazykObalu"`
	RegistrationDate   FlexString `json:"datumRegistrace"`
}

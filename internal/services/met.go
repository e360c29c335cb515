package services

// MetVariable pairs an iMet column with the matching reference-station column
type MetVariable struct {
	Title      string
	Instrument string
	Reference  string
}

// DefaultMetVariables returns the iMet-XQ2 to Kestrel column mapping. Values are
// compared as exported, without unit conversion.
func DefaultMetVariables() []MetVariable {
	return []MetVariable{
		{Title: "Temperature (°C)", Instrument: "Temperature (°C)", Reference: "Temperature"},
		{Title: "Wind Dir (°)", Instrument: "Corrected Wind Direction (°)", Reference: "Compass True Direction"},
		{Title: "Pressure (mmHg)", Instrument: "Pressure (hPa)", Reference: "Barometric Pressure"},
		{Title: "RH (%)", Instrument: "Relative Humidity (%)", Reference: "Relative Humidity"},
		{Title: "Wind Speed (m/s)", Instrument: "Corrected Wind Speed (m/s)", Reference: "Wind Speed"},
	}
}

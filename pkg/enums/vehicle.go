package enums

import "fmt"

// Province holds Canadian province and territory codes.
type Province string

const (
	ProvinceAB Province = "AB"
	ProvinceBC Province = "BC"
	ProvinceMB Province = "MB"
	ProvinceNB Province = "NB"
	ProvinceNL Province = "NL"
	ProvinceNS Province = "NS"
	ProvinceNT Province = "NT"
	ProvinceNU Province = "NU"
	ProvinceON Province = "ON"
	ProvincePE Province = "PE"
	ProvinceQC Province = "QC"
	ProvinceSK Province = "SK"
	ProvinceYT Province = "YT"
)

var provinceNames = map[Province]string{
	ProvinceAB: "Alberta",
	ProvinceBC: "British Columbia",
	ProvinceMB: "Manitoba",
	ProvinceNB: "New Brunswick",
	ProvinceNL: "Newfoundland and Labrador",
	ProvinceNS: "Nova Scotia",
	ProvinceNT: "Northwest Territories",
	ProvinceNU: "Nunavut",
	ProvinceON: "Ontario",
	ProvincePE: "Prince Edward Island",
	ProvinceQC: "Quebec",
	ProvinceSK: "Saskatchewan",
	ProvinceYT: "Yukon",
}

func (p Province) IsValid() bool {
	_, ok := provinceNames[p]
	return ok
}

// Name returns the display name, or the raw code when unknown.
func (p Province) Name() string {
	if name, ok := provinceNames[p]; ok {
		return name
	}
	return string(p)
}

// ParseProvince converts raw strings into Province.
func ParseProvince(value string) (Province, error) {
	p := Province(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid province %q", value)
	}
	return p, nil
}

type Drivetrain string

const (
	DrivetrainFWD Drivetrain = "FWD"
	DrivetrainRWD Drivetrain = "RWD"
	DrivetrainAWD Drivetrain = "AWD"
)

// IsValid accepts the empty value since drivetrain is optional.
func (d Drivetrain) IsValid() bool {
	switch d {
	case "", DrivetrainFWD, DrivetrainRWD, DrivetrainAWD:
		return true
	}
	return false
}

// ChargePort is the DC fast charge connector type.
type ChargePort string

const (
	ChargePortCCS     ChargePort = "CCS"
	ChargePortNACS    ChargePort = "NACS"
	ChargePortCHAdeMO ChargePort = "CHAdeMO"
	ChargePortTesla   ChargePort = "TESLA"
	ChargePortUnknown ChargePort = "UNKNOWN"
)

// IsValid accepts the empty value since the connector is optional.
func (c ChargePort) IsValid() bool {
	switch c {
	case "", ChargePortCCS, ChargePortNACS, ChargePortCHAdeMO, ChargePortTesla, ChargePortUnknown:
		return true
	}
	return false
}

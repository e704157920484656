package model

import "time"

// Bar is one trading day of price and volume.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Instrument is a watchlist entry. Keywords group instruments into
// recommendation sections.
type Instrument struct {
	Code     string   `json:"code" yaml:"code"`
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`
}

// Label returns "Name(Code)" or just the code when no name is known.
func (i Instrument) Label() string {
	if i.Name == "" {
		return i.Code
	}
	return i.Name + "(" + i.Code + ")"
}

// HasKeyword reports whether the instrument is tagged with kw.
func (i Instrument) HasKeyword(kw string) bool {
	for _, k := range i.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

package models

import "time"

// Impact is one row of the impact report file with its passport entry decoded.
type Impact struct {
	HydraID       string    // event id with catalog-source prefix, e.g. "us7000abcd"
	HydraTime     time.Time // origin time reported by the impact system
	Magnitude     float64   // rounded to one decimal place
	Command       string    // e.g. "PubFlagsAddImpact"
	PassportEntry string    // raw whitespace-delimited sub-fields
	Passport      PassportEntry
	Line          int // 1-based line number in the source file
}

// PassportEntry holds the positional fields decoded from a passport entry.
type PassportEntry struct {
	LossExtent       string // e.g. "Deaths"
	EffectType       string // e.g. "Shaking"
	LossQuantifier   string
	LossValue        int32
	Location         string
	CollectionSource string
	DatabaseID       string
	Comment          string
}

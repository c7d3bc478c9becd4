package resolve

import (
	"regexp"

	"msqc/domain/table"
)

// Rule binds one canonical column name to the raw names that may carry it.
// Literal names are tried first in order, then the Match expression against
// every raw column; the first hit wins and no other rule may claim the same
// raw column afterwards.
type Rule struct {
	Semantic string           // canonical column name in the resolved table
	Names    []string         // normalized literal names, in preference order
	Match    *regexp.Regexp   // optional fallback applied to normalized names
	Type     table.ColumnType // coercion applied when the column is adopted
	Required bool             // missing required columns abort the run
}

// RulesFor returns the resolution rules for a canonical table kind.
// Literal aliases cover both the delimited-directory naming and the
// container-format naming after normalization, so both readers share
// one table of patterns.
func RulesFor(kind table.Kind) []Rule {
	switch kind {
	case table.KindParameters:
		return parameterRules
	case table.KindSummary:
		return summaryRules
	case table.KindProteinGroups:
		return proteinGroupRules
	case table.KindEvidence:
		return evidenceRules
	case table.KindMSMS:
		return msmsRules
	case table.KindMSMSScans:
		return msmsScanRules
	default:
		return nil
	}
}

var parameterRules = []Rule{
	{Semantic: "parameter", Names: []string{"parameter"}, Type: table.TypeString, Required: true},
	{Semantic: "value", Names: []string{"value"}, Type: table.TypeString, Required: true},
}

var summaryRules = []Rule{
	{Semantic: "raw file", Names: []string{"raw file"}, Type: table.TypeString, Required: true},
	{
		Semantic: "ms/ms identified [%]",
		Names:    []string{"ms/ms identified [%]", "ms/ms identified"},
		Match:    regexp.MustCompile(`^ms/ms identified`),
		Type:     table.TypeNumeric,
	},
	{Semantic: "ms/ms submitted", Names: []string{"ms/ms submitted"}, Type: table.TypeNumeric},
	{Semantic: "experiment", Names: []string{"experiment"}, Type: table.TypeString},
	{Semantic: "fraction", Names: []string{"fraction"}, Type: table.TypeString},
}

var proteinGroupRules = []Rule{
	{Semantic: "protein ids", Names: []string{"protein ids", "majority protein ids", "accession"}, Type: table.TypeString, Required: true},
	{Semantic: "contaminant", Names: []string{"potential contaminant", "contaminant"}, Type: table.TypeBool},
	{Semantic: "reverse", Names: []string{"reverse"}, Type: table.TypeBool},
	{Semantic: "only identified by site", Names: []string{"only identified by site"}, Type: table.TypeBool},
	{Semantic: "peptides", Names: []string{"peptides", "num peptides"}, Type: table.TypeNumeric},
	{Semantic: "score", Names: []string{"score", "best search engine score[1]"}, Type: table.TypeNumeric},
}

var evidenceRules = []Rule{
	{Semantic: "raw file", Names: []string{"raw file"}, Type: table.TypeString, Required: true},
	{Semantic: "id", Names: []string{"id", "psm id"}, Type: table.TypeNumeric},
	{Semantic: "modified sequence", Names: []string{"modified sequence", "sequence"}, Type: table.TypeString},
	{Semantic: "protein group ids", Names: []string{"protein group ids", "accession"}, Type: table.TypeString},
	{Semantic: "charge", Names: []string{"charge"}, Type: table.TypeNumeric},
	{Semantic: "m/z", Names: []string{"m/z", "exp mass to charge"}, Type: table.TypeNumeric},
	{
		Semantic: "mass error [ppm]",
		Names:    []string{"mass error [ppm]", "mass error ppm", "uncalibrated - calibrated m/z [ppm]"},
		Type:     table.TypeNumeric,
	},
	{
		Semantic: "uncalibrated mass error [ppm]",
		Names:    []string{"uncalibrated mass error [ppm]", "uncalibrated mass error ppm"},
		Type:     table.TypeNumeric,
	},
	{Semantic: "retention time", Names: []string{"retention time"}, Type: table.TypeNumeric},
	{Semantic: "calibrated retention time", Names: []string{"calibrated retention time"}, Type: table.TypeNumeric},
	{Semantic: "retention length", Names: []string{"retention length"}, Type: table.TypeNumeric},
	{Semantic: "match time difference", Names: []string{"match time difference"}, Type: table.TypeNumeric},
	{Semantic: "type", Names: []string{"type"}, Type: table.TypeString},
	{Semantic: "missed cleavages", Names: []string{"missed cleavages"}, Type: table.TypeNumeric},
	{Semantic: "fraction", Names: []string{"fraction"}, Type: table.TypeNumeric},
	{Semantic: "contaminant", Names: []string{"potential contaminant", "contaminant"}, Type: table.TypeBool},
	{Semantic: "reverse", Names: []string{"reverse"}, Type: table.TypeBool},
}

var msmsRules = []Rule{
	{Semantic: "raw file", Names: []string{"raw file"}, Type: table.TypeString, Required: true},
	{Semantic: "evidence id", Names: []string{"evidence id", "psm id"}, Type: table.TypeNumeric},
	{Semantic: "missed cleavages", Names: []string{"missed cleavages"}, Type: table.TypeNumeric},
	{Semantic: "fragmentation", Names: []string{"fragmentation"}, Type: table.TypeString},
	{
		Semantic: "mass deviations [da]",
		Names:    []string{"mass deviations [da]", "mass deviations"},
		Type:     table.TypeString,
	},
	{Semantic: "mass deviations [ppm]", Names: []string{"mass deviations [ppm]"}, Type: table.TypeString},
	{Semantic: "reverse", Names: []string{"reverse"}, Type: table.TypeBool},
}

var msmsScanRules = []Rule{
	{Semantic: "raw file", Names: []string{"raw file"}, Type: table.TypeString, Required: true},
	{Semantic: "retention time", Names: []string{"retention time"}, Type: table.TypeNumeric},
	{Semantic: "ion injection time", Names: []string{"ion injection time"}, Type: table.TypeNumeric},
	{Semantic: "total ion current", Names: []string{"total ion current"}, Type: table.TypeNumeric},
	{Semantic: "scan event number", Names: []string{"scan event number"}, Type: table.TypeNumeric},
	{Semantic: "identified", Names: []string{"identified"}, Type: table.TypeString},
	{Semantic: "ms/ms ids", Names: []string{"ms/ms ids"}, Type: table.TypeString},
}

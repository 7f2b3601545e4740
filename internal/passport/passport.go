// Package passport decodes the whitespace-delimited passport entries carried
// on impact reports.
package passport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

const (
	FieldLossExtent       = "LossExtent"
	FieldEffectType       = "EffectType"
	FieldLossQuantifier   = "LossQuantifier"
	FieldLossValue        = "LossValue"
	FieldLocation         = "Location"
	FieldCollectionSource = "CollectionSource"
	FieldDatabaseID       = "database_id"
	FieldComment          = "comment"
)

// FieldNames is the positional layout of a passport entry.
var FieldNames = []string{
	FieldLossExtent,
	FieldEffectType,
	FieldLossQuantifier,
	FieldLossValue,
	FieldLocation,
	FieldCollectionSource,
	FieldDatabaseID,
	FieldComment,
}

// LossValueError reports a LossValue token that is missing or not a 32-bit integer.
type LossValueError struct {
	Token string
	Err   error
}

func (e *LossValueError) Error() string {
	if e.Err == nil {
		return "passport entry has no LossValue"
	}
	return fmt.Sprintf("invalid LossValue %q: %v", e.Token, e.Err)
}

func (e *LossValueError) Unwrap() error {
	return e.Err
}

// Decode zips the whitespace-separated tokens of entry against FieldNames.
// Tokens past the last field are not kept; their count is returned as overflow.
func Decode(entry string) (fields map[string]string, overflow int) {
	tokens := strings.Fields(entry)
	fields = make(map[string]string, len(FieldNames))
	for i, name := range FieldNames {
		if i >= len(tokens) {
			break
		}
		fields[name] = tokens[i]
	}
	if len(tokens) > len(FieldNames) {
		overflow = len(tokens) - len(FieldNames)
	}
	return fields, overflow
}

// Parse decodes entry and coerces LossValue to int32.
func Parse(entry string) (models.PassportEntry, int, error) {
	fields, overflow := Decode(entry)

	token, ok := fields[FieldLossValue]
	if !ok {
		return models.PassportEntry{}, overflow, &LossValueError{}
	}
	v, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		return models.PassportEntry{}, overflow, &LossValueError{Token: token, Err: err}
	}

	return models.PassportEntry{
		LossExtent:       fields[FieldLossExtent],
		EffectType:       fields[FieldEffectType],
		LossQuantifier:   fields[FieldLossQuantifier],
		LossValue:        int32(v),
		Location:         fields[FieldLocation],
		CollectionSource: fields[FieldCollectionSource],
		DatabaseID:       fields[FieldDatabaseID],
		Comment:          fields[FieldComment],
	}, overflow, nil
}

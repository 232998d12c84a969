package model

import (
	"encoding/json"
	"strconv"
)

// FlexFloat unmarshals a negotiated rate that most payers encode as a
// JSON number but some, per
// _examples/original_source/.../payers/centene.py's
// _normalize_centene_pricing (`float(price["negotiated_rate"])`), send
// as a quoted string.
type FlexFloat float64

// UnmarshalJSON accepts both `123.45` and `"123.45"`.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Float64 returns the rate as a plain float64.
func (f FlexFloat) Float64() float64 {
	return float64(f)
}

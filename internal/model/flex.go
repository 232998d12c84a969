package model

import (
	"encoding/json"
	"strconv"
)

// FlexNPI unmarshals an NPI that payers encode inconsistently as either a
// JSON number or a JSON string. Grounded on
// _examples/other_examples/sdsvn-gonpi__types.go's FlexInt and on
// Harshu-Pande-go-mrf-v2__types.go's `NPI interface{}` field.
type FlexNPI string

// UnmarshalJSON accepts both `"1234567890"` and `1234567890`.
func (f *FlexNPI) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexNPI(s)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexNPI(strconv.FormatInt(n, 10))
	return nil
}

// String returns the NPI as a plain string.
func (f FlexNPI) String() string {
	return string(f)
}

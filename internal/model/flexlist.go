package model

import "encoding/json"

// FlexStringList unmarshals a JSON field that some payers encode as a
// bare string and others as an array of strings, always producing a
// []string. Grounded on the recurring `if isinstance(x, str): x = [x]`
// coercions in payers/centene.py, payers/aetna.py, and payers/horizon.py.
type FlexStringList []string

// UnmarshalJSON accepts `"11"`, `["11","12"]`, and `null`.
func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = nil
			return nil
		}
		*f = FlexStringList{s}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*f = FlexStringList(list)
	return nil
}

package booking

import "encoding/json"

func encodeJSON(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}

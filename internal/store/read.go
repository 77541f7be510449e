package store

import (
	"encoding/json"
	"os"
)

// ReadJSON reads and decodes path into v. It returns found=false (and a
// nil error) when the file does not exist, so callers can distinguish
// "never written yet" from a genuine read failure.
func ReadJSON(path string, v any) (found bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, err
	}
	return true, nil
}

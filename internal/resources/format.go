package resources

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vrsandeep/storydesk/internal/api"
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func boolValue(b bool) string {
	return strconv.FormatBool(b)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// flagFrom reads a boolean field from the record in a toggle response.
// When the response carries no record the flag is flipped locally.
func flagFrom(res *api.Result, field string, current bool) bool {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(res.Data, &rec); err == nil {
		var v bool
		if raw, ok := rec[field]; ok && json.Unmarshal(raw, &v) == nil {
			return v
		}
	}
	return !current
}

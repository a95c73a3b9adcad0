package clean

import "github.com/marketpulse/pipeline/model"

// validate requires non-empty source and at least one non-empty text
// field (§4.2 step 4).
func validate(r *model.RawItem) bool {
	if r.Source == "" {
		return false
	}
	return r.Text != "" || r.Title != "" || r.Content != ""
}

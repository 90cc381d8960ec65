package model

import "time"

// UserContext is the callee profile used to personalise the conversation and
// to scope event searches.
type UserContext struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date,omitempty"` // YYYY-MM-DD
	Gender    string `json:"gender,omitempty"`
	Region    string `json:"region,omitempty"`
}

// Age derives the callee's age in whole years from the birth date. It
// returns 0 when the birth date is absent or unparseable.
func (u *UserContext) Age(now time.Time) int {
	if u == nil || u.BirthDate == "" {
		return 0
	}
	born, err := time.Parse("2006-01-02", u.BirthDate)
	if err != nil {
		return 0
	}
	age := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

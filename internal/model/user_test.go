package model

import (
	"testing"
	"time"
)

func TestUserAge(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		birth string
		want  int
	}{
		{"birthday passed", "1950-03-10", 76},
		{"birthday upcoming", "1950-11-20", 75},
		{"missing", "", 0},
		{"unparseable", "March 1950", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &UserContext{BirthDate: tc.birth}
			if got := u.Age(now); got != tc.want {
				t.Errorf("Age = %d, want %d", got, tc.want)
			}
		})
	}

	var nilUser *UserContext
	if nilUser.Age(now) != 0 {
		t.Error("nil user should have age 0")
	}
}

func TestCallSessionAssistantItem(t *testing.T) {
	s := NewCallSession()

	s.SetLastAssistantItem("item-1")
	if prev := s.ClearLastAssistantItem(); prev != "item-1" {
		t.Errorf("cleared %q", prev)
	}
	if prev := s.ClearLastAssistantItem(); prev != "" {
		t.Errorf("second clear returned %q", prev)
	}
}

func TestCallSessionAccumulatedAudio(t *testing.T) {
	s := NewCallSession()
	s.AddAccumulatedAudio(100)
	s.AddAccumulatedAudio(60)
	if n := s.ResetAccumulatedAudio(); n != 160 {
		t.Errorf("accumulated = %d", n)
	}
	if n := s.ResetAccumulatedAudio(); n != 0 {
		t.Errorf("after reset = %d", n)
	}
}

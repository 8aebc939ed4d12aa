package authoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/phishshift/internal/outcome"
	"github.com/abhisek/phishshift/internal/scenario"
)

func TestStructuralValidator(t *testing.T) {
	base := scenario.Scenario{
		ID: "s", Channel: scenario.ChannelEmail, Title: "t", Sender: "a@example.com",
		Subject: "hi", Body: "body", Explanation: "why",
		Legitimacy: outcome.Legitimate, CorrectAction: outcome.ActionProceed,
	}
	v := &StructuralValidator{MaxBody: 10}

	tests := []struct {
		name   string
		mutate func(*scenario.Scenario)
		want   string
	}{
		{"ok", func(*scenario.Scenario) {}, ""},
		{"no title", func(s *scenario.Scenario) { s.Title = " " }, "title"},
		{"long body", func(s *scenario.Scenario) { s.Body = strings.Repeat("x", 11) }, "limit is 10"},
		{"email without subject", func(s *scenario.Scenario) { s.Subject = "" }, "subject"},
		{"sms without subject", func(s *scenario.Scenario) { s.Channel, s.Subject = scenario.ChannelSMS, "" }, ""},
		{"no explanation", func(s *scenario.Scenario) { s.Explanation = "" }, "explanation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			err := v.Validate(s, Brief{})
			if tt.want == "" {
				assert.Nil(t, err)
				return
			}
			if assert.NotNil(t, err) {
				assert.Contains(t, err.Message, tt.want)
				assert.True(t, err.Retryable)
			}
		})
	}
}

func TestDifficultyValidator(t *testing.T) {
	v := &DifficultyValidator{Tolerance: 1}
	s := scenario.Scenario{DifficultyScore: 3}
	assert.Nil(t, v.Validate(s, Brief{}))
	assert.Nil(t, v.Validate(s, Brief{TargetDifficulty: 4}))
	assert.NotNil(t, v.Validate(s, Brief{TargetDifficulty: 5}))
	assert.NotNil(t, v.Validate(s, Brief{TargetDifficulty: 1}))
}

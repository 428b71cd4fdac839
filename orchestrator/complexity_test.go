package orchestrator_test

import (
	"testing"

	"github.com/fableforge/storyforge/ledger"
	"github.com/fableforge/storyforge/orchestrator"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	longPremise := "A retired cartographer maps the dreams of a sleeping city and finds a street that appears on no map drawn by waking hands"

	tests := []struct {
		name       string
		premise    string
		mood       string
		characters string
		want       ledger.Complexity
	}{
		{
			name:    "short premise plain mood",
			premise: "A dog finds a bone",
			mood:    "lighthearted",
			want:    ledger.Simple,
		},
		{
			name:    "medium premise",
			premise: "A young sailor inherits a map leading to an island that moves",
			mood:    "adventurous",
			want:    ledger.Simple, // 11 words scores 1
		},
		{
			name:    "long premise alone",
			premise: longPremise,
			mood:    "adventurous",
			want:    ledger.Medium,
		},
		{
			name:    "psychological mood adds weight",
			premise: "A woman hears her own voice on an old tape she never recorded",
			mood:    "psychological thriller",
			want:    ledger.Medium, // 13 words + mood keyword
		},
		{
			name:       "long premise with surreal mood and complex cast",
			premise:    longPremise,
			mood:       "surreal",
			characters: "a complex ensemble of rival mapmakers",
			want:       ledger.High,
		},
		{
			name:       "detailed characters add one",
			premise:    "A dog finds a bone",
			mood:       "philosophical",
			characters: "a detailed study of the dog's inner life",
			want:       ledger.Medium, // mood 2 + characters 1
		},
		{
			name: "empty request",
			want: ledger.Simple,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orchestrator.Classify(tt.premise, tt.mood, tt.characters)
			assert.Equal(t, tt.want, got)
		})
	}
}

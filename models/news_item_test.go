package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceDomainOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
		null bool
	}{
		{in: "https://www.example.com/news/1", want: "example.com"},
		{in: "http://News.BBC.co.uk/story", want: "news.bbc.co.uk"},
		{in: "https://WWW.Example.org:8443/x?y=1", want: "example.org"},
		{in: "", null: true},
		{in: "   ", null: true},
		{in: "not a url", null: true},
		{in: "://broken", null: true},
		{in: "https://", null: true},
	}

	for _, tt := range tests {
		got := SourceDomainOf(tt.in)
		if tt.null {
			assert.Nil(t, got, "input %q", tt.in)
			continue
		}
		if assert.NotNil(t, got, "input %q", tt.in) {
			assert.Equal(t, tt.want, *got)
		}
	}
}

func TestParseCredibility(t *testing.T) {
	l, ok := ParseCredibility(" High ")
	assert.True(t, ok)
	assert.Equal(t, CredibilityHigh, l)

	_, ok = ParseCredibility("unknown")
	assert.False(t, ok)
}

func TestVoteValid(t *testing.T) {
	assert.True(t, VoteFake.Valid())
	assert.True(t, VoteReal.Valid())
	assert.False(t, Vote("fake").Valid())
	assert.False(t, Vote("").Valid())
}

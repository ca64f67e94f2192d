package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUserID(t *testing.T) {
	assert.Equal(t, UserID("alice"), NormalizeUserID("  alice "))
	assert.Equal(t, DemoUserID, NormalizeUserID("   "))
}

func TestNewIdeaTruncatesTitle(t *testing.T) {
	long := strings.Repeat("ü", 250)
	idea := NewIdea("u", "  "+long+"  ")
	assert.Equal(t, long, idea.Text)
	assert.Equal(t, 200, len([]rune(idea.Title)))
	assert.Equal(t, UserID("u"), idea.UserID)
}

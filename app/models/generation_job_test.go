package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationJobSlidesRoundtrip(t *testing.T) {
	job := &GenerationJob{}

	slides, err := job.Slides()
	require.NoError(t, err)
	assert.Empty(t, slides)

	in := []Slide{
		{Index: 0, Title: "Intro", Content: "Hello"},
		{Index: 1, Title: "Detail", Content: "World"},
	}
	require.NoError(t, job.SetSlides(in))

	out, err := job.Slides()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGenerationJobSlidesCorrupt(t *testing.T) {
	job := &GenerationJob{SlidesJSON: "{not json"}
	_, err := job.Slides()
	assert.Error(t, err)
}

func TestGenerationJobIsTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		JobStatusPending:    false,
		JobStatusProcessing: false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
		JobStatusCancelled:  true,
	} {
		job := &GenerationJob{Status: status}
		assert.Equal(t, terminal, job.IsTerminal(), "status %s", status)
	}
}

func TestTeamMemberCanManageMembers(t *testing.T) {
	assert.True(t, (&TeamMember{Role: TEAM_ROLE_OWNER}).CanManageMembers())
	assert.True(t, (&TeamMember{Role: TEAM_ROLE_ADMIN}).CanManageMembers())
	assert.False(t, (&TeamMember{Role: TEAM_ROLE_MEMBER}).CanManageMembers())
}

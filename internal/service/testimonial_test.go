package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestTestimonialVisibility(t *testing.T) {
	s := NewTestimonialService(memTestimonials{newMemDB()})
	ctx := context.Background()

	shown, err := s.Create(ctx, TestimonialInput{Name: strp("Sam"), Role: strp("Editor"), Text: strp("Great cars")})
	require.NoError(t, err)
	assert.True(t, shown.IsActive)
	hidden, err := s.Create(ctx, TestimonialInput{Name: strp("Kim"), Text: strp("Meh"), IsActive: boolp(false)})
	require.NoError(t, err)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, shown.ID, active[0].ID)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.Get(ctx, hidden.ID, false)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	got, err := s.Get(ctx, hidden.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Kim", got.Name)
}

func TestTestimonialUpdateDelete(t *testing.T) {
	s := NewTestimonialService(memTestimonials{newMemDB()})
	ctx := context.Background()

	_, err := s.Create(ctx, TestimonialInput{Name: strp("Sam")})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	tm, err := s.Create(ctx, TestimonialInput{Name: strp("Sam"), Text: strp("Great")})
	require.NoError(t, err)

	up, err := s.Update(ctx, tm.ID, TestimonialInput{Text: strp("Even better"), IsActive: boolp(false)})
	require.NoError(t, err)
	assert.Equal(t, "Sam", up.Name)
	assert.Equal(t, "Even better", up.Text)
	assert.False(t, up.IsActive)

	_, err = s.Update(ctx, tm.ID, TestimonialInput{Name: strp(" ")})
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	require.NoError(t, s.Delete(ctx, tm.ID))
	assert.Equal(t, apperr.NotFound, apperr.KindOf(s.Delete(ctx, tm.ID)))
}

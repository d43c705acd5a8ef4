package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceResult_Status(t *testing.T) {
	assert.Equal(t, StatusFailed, SourceResult{Err: errors.New("boom")}.Status())
	assert.Equal(t, StatusEmpty, SourceResult{}.Status())
	assert.Equal(t, StatusOK, SourceResult{Articles: []Article{{ID: "a"}}}.Status())
}

func TestCategoryResult_AllFailed(t *testing.T) {
	res := CategoryResult{Sources: []SourceResult{
		{Err: errors.New("timeout")},
		{Err: errors.New("html")},
	}}
	assert.True(t, res.AllFailed())
	assert.Equal(t, 2, res.Failed())
	assert.ErrorContains(t, res.SourceErrors(), "timeout")

	res.Sources = append(res.Sources, SourceResult{})
	assert.False(t, res.AllFailed())
	assert.False(t, CategoryResult{}.AllFailed())
}

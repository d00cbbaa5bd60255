package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHolidaysKey(t *testing.T) {
	assert.Equal(t, "holidays:MG:2025", holidaysKey("MG", 2025))
}

package txnid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Deterministic(t *testing.T) {
	a := New("2024-01-15", "-45.00", "TESCO STORES 1234", "1")
	b := New("2024-01-15", "-45.00", "TESCO STORES 1234", "1")
	assert.Equal(t, a, b)
}

func TestNew_DistinctParts(t *testing.T) {
	a := New("2024-01-15", "-45.00", "TESCO STORES 1234", "1")
	b := New("2024-01-15", "-45.00", "TESCO STORES 1234", "2")
	assert.NotEqual(t, a, b, "row position must distinguish otherwise identical rows")
}

func TestNew_TrimsParts(t *testing.T) {
	a := New(" 2024-01-15 ", "-45.00")
	b := New("2024-01-15", "-45.00")
	assert.Equal(t, a, b)
}

package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	op      string
	current int
	total   int
	message string
}

func record(steps *[]step) Callback {
	return func(op string, current, total int, message string) {
		*steps = append(*steps, step{op, current, total, message})
	}
}

func TestNewDefaultsToNoop(t *testing.T) {
	p := New("apply", 3, nil)
	assert.Equal(t, "apply", p.Op)
	assert.Equal(t, 3, p.Total)

	// Must not panic without a callback
	p.Increment("cmd/main.go")
	assert.Equal(t, 1, p.Current())
}

func TestIncrementReportsEachArtifact(t *testing.T) {
	var steps []step
	p := New("apply", 3, record(&steps))

	p.Increment("a.go")
	p.Increment("b.go")
	p.Increment("c.go")

	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, "apply", s.op)
		assert.Equal(t, i+1, s.current)
		assert.Equal(t, 3, s.total)
	}
	assert.Equal(t, "a.go", steps[0].message)
	assert.Equal(t, "c.go", steps[2].message)
}

func TestSetJumpsToAbsolutePosition(t *testing.T) {
	var steps []step
	p := New("verify", 100, record(&steps))

	p.Set(50, "objects checked")
	p.Set(75, "previews checked")

	require.Len(t, steps, 2)
	assert.Equal(t, 50, steps[0].current)
	assert.Equal(t, "objects checked", steps[0].message)
	assert.Equal(t, 75, p.Current())
}

func TestDoneSnapsToTotal(t *testing.T) {
	var steps []step
	p := New("apply", 5, record(&steps))

	p.Increment("a.go")
	p.Done("")

	require.Len(t, steps, 2)
	assert.Equal(t, 5, steps[1].current)
	assert.Equal(t, 5, steps[1].total)
	assert.Equal(t, 5, p.Current())
}

func TestSequence(t *testing.T) {
	var currents []int
	p := New("verify", 10, func(op string, current, total int, message string) {
		currents = append(currents, current)
	})

	p.Increment("")
	p.Increment("")
	p.Set(5, "")
	p.Increment("")
	p.Done("")

	assert.Equal(t, []int{1, 2, 5, 6, 10}, currents)
}

func TestNoop(t *testing.T) {
	Noop("apply", 1, 10, "a.go")
}

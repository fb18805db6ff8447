package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_Percentage(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want float64
	}{
		{"empty total", Item{CurrentIndex: 3}, 0},
		{"half", Item{CurrentIndex: 5, TotalCount: 10}, 50},
		{"clamped", Item{CurrentIndex: 12, TotalCount: 10}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.item.Percentage(), 0.001)
		})
	}
}

func TestRecorder_FiltersByStage(t *testing.T) {
	rec := &Recorder{}
	rec.Item(Item{Stage: StageCsvParsing, CurrentIndex: 1})
	rec.Item(Item{Stage: StageObjectMatching, CurrentIndex: 1})
	rec.Phase(Phase{Stage: StageCsvParsing, Percentage: 5})

	assert.Len(t, rec.Items(""), 2)
	assert.Len(t, rec.Items(StageObjectMatching), 1)
	require.Len(t, rec.Phases(), 1)
	assert.Equal(t, 5, rec.Phases()[0].Percentage)
}

func TestChannel_CoalescesItems(t *testing.T) {
	ch := NewChannel(4)
	ch.Item(Item{CurrentIndex: 1})
	ch.Item(Item{CurrentIndex: 2})
	ch.Phase(Phase{Stage: StageComplete})
	ch.Close()

	var items []Item
	for i := range ch.ItemEvents() {
		items = append(items, i)
	}
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].CurrentIndex)

	var phases []Phase
	for p := range ch.Phases() {
		phases = append(phases, p)
	}
	assert.Len(t, phases, 1)
}

func TestOrNoop(t *testing.T) {
	assert.IsType(t, Noop{}, OrNoop(nil))
	rec := &Recorder{}
	assert.Same(t, rec, OrNoop(rec))
}

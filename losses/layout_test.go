package losses

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeLayout(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		want      []ColumnRange
		predWidth int
		targWidth int
		wantGaps  []int
	}{
		{
			name: "independent",
			cfg: Config{
				Regression: []int{0},
				Binary:     []BinaryTargetSpec{Binary(1)},
				Multiclass: []MulticlassTargetSpec{Multiclass(2, 3)},
			},
			want: []ColumnRange{
				{Kind: KindRegression, Position: 0, Target: 0, PredStart: 0, PredEnd: 1},
				{Kind: KindBinary, Position: 1, Target: 1, PredStart: 1, PredEnd: 2},
				{Kind: KindMulticlass, Position: 2, Target: 2, PredStart: 2, PredEnd: 5},
			},
			predWidth: 5,
			targWidth: 3,
		},
		{
			name: "independent with gap",
			cfg: Config{
				Regression: []int{0, 1},
				Binary:     []BinaryTargetSpec{Binary(3)},
			},
			want: []ColumnRange{
				{Kind: KindRegression, Position: 0, Target: 0, PredStart: 0, PredEnd: 1},
				{Kind: KindRegression, Position: 1, Target: 1, PredStart: 1, PredEnd: 2},
				{Kind: KindBinary, Position: 2, Target: 3, PredStart: 3, PredEnd: 4},
			},
			predWidth: 4,
			targWidth: 4,
			wantGaps:  []int{2},
		},
		{
			name: "binary trick",
			cfg: Config{
				Regression:  []int{0},
				Binary:      []BinaryTargetSpec{Binary(1), Binary(2)},
				Multiclass:  []MulticlassTargetSpec{Multiclass(3, 3)},
				BinaryTrick: true,
			},
			want: []ColumnRange{
				{Kind: KindRegression, Position: 0, Target: 0, PredStart: 0, PredEnd: 1},
				{Kind: KindBinary, Position: 1, Target: 1, PredStart: 1, PredEnd: 3},
				{Kind: KindBinary, Position: 2, Target: 2, PredStart: 3, PredEnd: 5},
				{Kind: KindMulticlass, Position: 3, Target: 3, PredStart: 5, PredEnd: 8},
			},
			predWidth: 8,
			targWidth: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := newCompositeLayout(tt.cfg)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, layout.Ranges); diff != "" {
				t.Errorf("Ranges mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.predWidth, layout.PredictionWidth())
			assert.Equal(t, tt.targWidth, layout.TargetWidth())
			if diff := cmp.Diff(tt.wantGaps, layout.gaps(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("gaps mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassificationLayoutBinaryTrickIsRelative(t *testing.T) {
	layout, err := newClassificationLayout(
		[]BinaryTargetSpec{Binary(2)},
		[]MulticlassTargetSpec{Multiclass(3, 4)},
		true,
	)
	require.NoError(t, err)

	assert.Equal(t, 6, layout.PredictionWidth())
	assert.Equal(t, 4, layout.TargetWidth())
	assert.Equal(t, 1, layout.Count(KindBinary))
	assert.Equal(t, 1, layout.Count(KindMulticlass))
	assert.Equal(t, 0, layout.Count(KindRegression))

	mc := layout.Of(KindMulticlass)
	require.Len(t, mc, 1)
	assert.Equal(t, ColumnRange{Kind: KindMulticlass, Position: 1, Target: 3, PredStart: 2, PredEnd: 6}, mc[0])
	assert.Equal(t, 4, mc[0].Width())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "regression", KindRegression.String())
	assert.Equal(t, "binary", KindBinary.String())
	assert.Equal(t, "multiclass", KindMulticlass.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}

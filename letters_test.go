package learningassistant_test

import (
	"testing"

	"learningassistant"

	"github.com/stretchr/testify/require"
)

func TestLetterAt(t *testing.T) {
	l, err := learningassistant.LetterAt(0)
	require.NoError(t, err)
	require.Equal(t, learningassistant.Letter("A"), l)

	l, err = learningassistant.LetterAt(25)
	require.NoError(t, err)
	require.Equal(t, learningassistant.Letter("Z"), l)

	_, err = learningassistant.LetterAt(26)
	require.ErrorIs(t, err, learningassistant.ErrTooManyOptions)

	_, err = learningassistant.LetterAt(-1)
	require.ErrorIs(t, err, learningassistant.ErrUnknownLetter)
}

func TestLetterIndex(t *testing.T) {
	require.Equal(t, 0, learningassistant.Letter("A").Index())
	require.Equal(t, 2, learningassistant.Letter("C").Index())
	require.Equal(t, -1, learningassistant.Letter("a").Index())
	require.Equal(t, -1, learningassistant.Letter("AA").Index())
}

func TestNewSelectionNormalizes(t *testing.T) {
	sel := learningassistant.NewSelection(" c", "a", "A", "", "B")
	require.Equal(t, seq("A", "B", "C"), sel)
	require.True(t, sel.Contains("B"))
	require.False(t, sel.Contains("D"))
	require.Equal(t, "A, B, C", sel.String())
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    learningassistant.Selection
		wantErr error
	}{
		{in: "A", want: seq("A")},
		{in: "b, d", want: seq("B", "D")},
		{in: "C A;A", want: seq("A", "C")},
		{in: "", want: learningassistant.Selection{}},
		{in: "A, 7", wantErr: learningassistant.ErrUnknownLetter},
		{in: "AB", wantErr: learningassistant.ErrUnknownLetter},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := learningassistant.ParseSelection(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSelectionEqual(t *testing.T) {
	require.True(t, seq("A", "C").Equal(seq("C", "A")))
	require.False(t, seq("A").Equal(seq("A", "C")))
	require.False(t, seq("B").Equal(seq("C")))
}

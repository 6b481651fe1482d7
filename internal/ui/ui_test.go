package ui

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/Makepad-fr/tada/internal/model"
)

func withMono(t *testing.T) {
	t.Helper()
	SetTheme("mono")
	t.Cleanup(func() { SetTheme("classic") })
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[█████░░░░░] 1/2", ProgressBar(1, 2, 10))
	assert.Equal(t, "[░░░░░] 0/1", ProgressBar(0, 0, 0))
	assert.Equal(t, "[█████] 9/3", ProgressBar(9, 3, 5))
}

func TestItemLinesMono(t *testing.T) {
	withMono(t)
	lines := ItemLines([]model.Item{{ID: 1, Title: "a"}, {ID: 2, Title: "b", Completed: true}})
	assert.Equal(t, []string{"#1   [ ] a", "#2   [x] b"}, lines)
	assert.Equal(t, []string{"no items"}, ItemLines(nil))
}

func TestItemLinesTruncatesByWidth(t *testing.T) {
	withMono(t)
	long := strings.Repeat("a", 76) + strings.Repeat("é", 8)
	lines := ItemLines([]model.Item{{ID: 1, Title: long}, {ID: 2, Title: strings.Repeat("é", 80)}})

	assert.Equal(t, "#1   [ ] "+strings.Repeat("a", 76)+"é...", lines[0])
	assert.True(t, utf8.ValidString(lines[0]))
	assert.Equal(t, "#2   [ ] "+strings.Repeat("é", 80), lines[1], "titles that fit are untouched")
}

func TestGroupLinesMono(t *testing.T) {
	withMono(t)
	lines := GroupLines([]model.Item{{ID: 1, Title: "a", Completed: true}})
	assert.Equal(t, []string{"Pending", "(none)", "", "Done", "#1   [x] a"}, lines)
}

func TestHeaderMono(t *testing.T) {
	withMono(t)
	assert.Equal(t, "Todos   x 1  - 2  Total 3", Header(model.Counts{Active: 2, Total: 3}))
}

func TestOKFail(t *testing.T) {
	withMono(t)
	var out, errOut bytes.Buffer
	oldOut, oldErr := Out, Err
	Out, Err = &out, &errOut
	t.Cleanup(func() { Out, Err = oldOut, oldErr })

	OK("added")
	Fail("nope")
	assert.Equal(t, "ok added\n", out.String())
	assert.Equal(t, "error: nope\n", errOut.String())
}

func TestTableMono(t *testing.T) {
	withMono(t)
	s := Table([]string{"id", "title"}, [][]string{{"1", "milk"}})
	assert.True(t, strings.Contains(s, "id"))
	assert.True(t, strings.Contains(s, "milk"))
	assert.Equal(t, 5, strings.Count(s, "\n")+1, "top, header, divider, row, bottom")
}

func TestPanelString(t *testing.T) {
	withMono(t)
	s := PanelString("hi")
	assert.Equal(t, "+----+\n| hi |\n+----+", s)
}

package dyno_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dyno "github.com/tussik/dyno-go"
)

func TestSetLoggerCapturesSkips(t *testing.T) {
	var errorCount int
	dyno.SetLogger(dyno.FuncLogger{Fn: func(level, _ string, _ map[string]any) {
		if level == "error" {
			errorCount++
		}
	}})
	defer dyno.SetLogger(nil)

	tbl := sampleTable(t)
	// An invalid flag value encodes with an error log, not a failure.
	_, err := tbl.WriteRecord("user", dyno.Item{
		"accountid": "a1",
		"userid":    "u1",
		"flag":      "Sideways",
	}, false)
	assert.NoError(t, err)
	assert.Equal(t, 1, errorCount)
}

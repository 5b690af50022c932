package diag

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thiremani/safec/token"
)

func sample() *Reporter {
	r := NewReporter()
	r.Errorf(token.Pos{File: "a.c", Line: 3, Column: 5}, CodeNullInit, "null assigned to nonnull %s", "p")
	r.Warnf(token.Pos{File: "a.c", Line: 7, Column: 1}, CodeFuncPtrMismatch, "function pointer attributes differ")
	return r
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCounts(t *testing.T) {
	r := sample()
	assert.Equal(t, 1, r.ErrorCount())
	assert.Equal(t, 1, r.WarningCount())
	assert.Len(t, r.ByCode(CodeNullInit), 1)
	assert.Empty(t, r.ByCode(CodeNoBound))
	require.EqualError(t, r.Err(), "1 errors")

	assert.NoError(t, NewReporter().Err())
}

func TestWarningsAsErrors(t *testing.T) {
	r := NewReporter()
	r.WarningsAsErrors = true
	r.Warnf(token.Pos{Line: 1}, CodeNoBound, "no bound for %s", "q")
	assert.Equal(t, 1, r.ErrorCount())
	assert.Zero(t, r.WarningCount())
	assert.Equal(t, Error, r.Diags[0].Severity)
}

func TestErrorLimit(t *testing.T) {
	r := NewReporter()
	r.Limit = 2
	for i := 1; i <= 5; i++ {
		r.Errorf(token.Pos{Line: i}, CodeStaticIndex, "index out of range")
	}
	r.Warnf(token.Pos{Line: 6}, CodeNoBound, "warnings are still recorded")

	assert.Equal(t, 2, r.ErrorCount())
	assert.Equal(t, 1, r.WarningCount())
	assert.True(t, r.Limited())
	assert.ErrorIs(t, r.Err(), ErrTooManyErrors)
}

func TestAddCompileErrors(t *testing.T) {
	r := NewReporter()
	r.AddCompileErrors([]*token.CompileError{
		{Token: token.Token{Type: token.SEMICOLON, Literal: ";", Pos: token.Pos{File: "b.c", Line: 2, Column: 9}}, Msg: "expected expression"},
	}, CodeSyntax)
	require.Len(t, r.Diags, 1)
	assert.Equal(t, "b.c:2:9: error: expected expression [C001]", r.Diags[0].Error())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().Write(&buf, FormatText, "safecc", "test"))
	golden(t).Assert(t, "report_text", buf.Bytes())

	buf.Reset()
	require.NoError(t, NewReporter().Write(&buf, FormatText, "safecc", "test"))
	assert.Empty(t, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().Write(&buf, FormatJSON, "safecc", "test"))
	golden(t).Assert(t, "report_json", buf.Bytes())
}

func TestWriteSARIF(t *testing.T) {
	r := sample()
	r.Errorf(token.Pos{File: "a.c"}, CodeSemantic, "position unknown")

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, FormatSARIF, "safecc", "1.2.3"))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, "safecc", run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)

	id, err := uuid.Parse(run.AutomationDetails.GUID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	require.Len(t, run.Results, 3)
	assert.Equal(t, "ENC101", run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "warning", run.Results[1].Level)
	region := run.Results[2].Locations[0].PhysicalLocation.Region
	assert.Equal(t, 1, region.StartLine, "SARIF lines start at 1")
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, sample().Write(&buf, "xml", "safecc", "test"))
}

package regulation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPunjab_LoadsSevenEntriesInOrder(t *testing.T) {
	c, err := Punjab()
	require.NoError(t, err)
	require.Equal(t, 7, c.Len())

	all := c.All()
	assert.Equal(t, "FIRE-EXT-001", all[0].ID)
	assert.Equal(t, float64(500000), all[0].FineAmount)
	assert.Equal(t, SeverityHigh, all[0].Severity)
	assert.Equal(t, "SIGN-BOARD-007", all[6].ID)
	assert.Equal(t, SeverityLow, all[6].Severity)
}

func TestCorpus_AllReturnsCopy(t *testing.T) {
	c, err := Punjab()
	require.NoError(t, err)

	all := c.All()
	all[0].ID = "MUTATED"
	all[0].Keywords[0] = "mutated"

	again := c.All()
	assert.Equal(t, "FIRE-EXT-001", again[0].ID)
	assert.Equal(t, "fire escape", again[0].Keywords[0])
}

func TestCorpus_Find(t *testing.T) {
	c, err := Punjab()
	require.NoError(t, err)

	e, ok := c.Find("elec-wir-003")
	require.True(t, ok)
	assert.Equal(t, float64(50000), e.FineAmount)

	e, ok = c.Find("Punjab Dangerous Buildings Act, Section 3")
	require.True(t, ok)
	assert.Equal(t, "STRUCT-CRK-004", e.ID)

	e, ok = c.Find("See SETBACK-006 (LDA Land Use Rules 2020, Chapter 4)")
	require.True(t, ok)
	assert.Equal(t, "SETBACK-006", e.ID)

	_, ok = c.Find("")
	assert.False(t, ok)
	_, ok = c.Find("Karachi Building Control")
	assert.False(t, ok)
}

func TestCorpus_Match(t *testing.T) {
	c, err := Punjab()
	require.NoError(t, err)

	matches := c.Match("Exposed wire near a large crack in the beam")
	var ids []string
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"ELEC-WIR-003", "STRUCT-CRK-004"}, ids)
	assert.Empty(t, c.Match("clean facade"))
}

func TestCorpus_JSON(t *testing.T) {
	c, err := Punjab()
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(c.JSON(), &decoded))
	require.Len(t, decoded, 7)
	assert.Equal(t, "CONST-PPE-005", decoded[4]["id"])
	assert.Equal(t, "Labor & Human Resource Dept Punjab, Safety Policy 2022", decoded[4]["code_ref"])
}

func TestLoad_Rejects(t *testing.T) {
	_, err := Load([]byte(`{`))
	assert.Error(t, err)
	_, err = Load([]byte(`[{"id":"A","severity":"High"},{"id":"A","severity":"High"}]`))
	assert.ErrorContains(t, err, "duplicate")
	_, err = Load([]byte(`[{"id":"A","severity":"Extreme"}]`))
	assert.ErrorContains(t, err, "severity")
	_, err = Load([]byte(`[{"id":"A","severity":"Low","fine_amount":-1}]`))
	assert.ErrorContains(t, err, "negative")
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, SeverityHigh, ParseSeverity("HIGH"))
	assert.Equal(t, SeverityLow, ParseSeverity(" low "))
	assert.Equal(t, SeverityMedium, ParseSeverity("critical"))
	assert.Equal(t, SeverityMedium, ParseSeverity(""))
}
